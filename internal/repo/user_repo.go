package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/netscore/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	Create(ctx context.Context, email string, username *string) (model.User, error)
	MarkAuthenticated(ctx context.Context, id int64, at time.Time) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, email, username, first_name, last_name, is_active,
	is_staff, is_superuser, email_verified, last_login, date_joined`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.EmailVerified,
		&u.LastLogin,
		&u.DateJoined,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by canonical (lower-cased) email
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// GetByUsername retrieves a user by lower-cased username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, strings.ToLower(username))
	return scanUser(row)
}

// Create inserts a new active user. Email and username are stored lower-cased.
func (r *userRepo) Create(ctx context.Context, email string, username *string) (model.User, error) {
	if username != nil {
		lower := strings.ToLower(*username)
		username = &lower
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username)
		VALUES ($1, $2)
		RETURNING `+userColumns,
		strings.ToLower(email), username)
	return scanUser(row)
}

// MarkAuthenticated flips email_verified and records the login time.
func (r *userRepo) MarkAuthenticated(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified = TRUE, last_login = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark authenticated: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}
