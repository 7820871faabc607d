package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/netscore/server/internal/model"
)

// CodeRepo defines the interface for verification code repository operations
type CodeRepo interface {
	Create(ctx context.Context, userID int64, deviceID *int64, tokenHash string, ip *string) (model.VerificationCode, error)
	LatestUnverified(ctx context.Context, userID int64) (model.VerificationCode, error)
	MarkVerified(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type codeRepo struct {
	db *sql.DB
}

// NewCodeRepo creates a new CodeRepo instance
func NewCodeRepo(db *sql.DB) CodeRepo {
	return &codeRepo{db: db}
}

const codeColumns = `id, user_id, device_id, token_hash, verified, ip, created`

func scanCode(row *sql.Row) (model.VerificationCode, error) {
	var c model.VerificationCode
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.DeviceID,
		&c.TokenHash,
		&c.Verified,
		&c.IP,
		&c.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationCode{}, fmt.Errorf("verification code: %w", ErrNotFound)
		}
		return model.VerificationCode{}, fmt.Errorf("query verification code: %w", err)
	}
	return c, nil
}

// Create inserts a fresh unverified code row. Multiple unverified rows
// may coexist for a user; only the most recent one is consulted.
func (r *codeRepo) Create(ctx context.Context, userID int64, deviceID *int64, tokenHash string, ip *string) (model.VerificationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO verification_codes (user_id, device_id, token_hash, ip)
		VALUES ($1, $2, $3, $4)
		RETURNING `+codeColumns,
		userID, deviceID, tokenHash, ip)
	return scanCode(row)
}

// LatestUnverified returns the most recently created unverified code for the user.
func (r *codeRepo) LatestUnverified(ctx context.Context, userID int64) (model.VerificationCode, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+codeColumns+` FROM verification_codes
		WHERE user_id = $1 AND verified = FALSE
		ORDER BY created DESC
		LIMIT 1
	`, userID)
	return scanCode(row)
}

// MarkVerified consumes the code; a verified row never authenticates again.
func (r *codeRepo) MarkVerified(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET verified = TRUE WHERE id = $1 AND verified = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("verification code: %w", ErrNotFound)
	}
	return nil
}

// Delete removes an expired code row. Deleting an already-removed row is not an error.
func (r *codeRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}
