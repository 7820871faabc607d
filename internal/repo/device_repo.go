package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/netscore/server/internal/model"
)

// DeviceRepo defines the interface for user device repository operations
type DeviceRepo interface {
	GetByUUID(ctx context.Context, userID int64, deviceUUID string) (model.UserDevice, error)
	GetByPushToken(ctx context.Context, userID int64, pushToken string) (model.UserDevice, error)
	Insert(ctx context.Context, d model.UserDevice) (model.UserDevice, error)
	Update(ctx context.Context, d model.UserDevice) (model.UserDevice, error)
	TouchLastLogin(ctx context.Context, userID int64, deviceUUID string, at time.Time) error
}

type deviceRepo struct {
	db *sql.DB
}

// NewDeviceRepo creates a new DeviceRepo instance
func NewDeviceRepo(db *sql.DB) DeviceRepo {
	return &deviceRepo{db: db}
}

const deviceColumns = `id, user_id, uuid, name, os, os_version, app_version,
	device_type, push_token, active, last_login, ip, created`

func scanDevice(row *sql.Row) (model.UserDevice, error) {
	var d model.UserDevice
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.UUID,
		&d.Name,
		&d.OS,
		&d.OSVersion,
		&d.AppVersion,
		&d.DeviceType,
		&d.PushToken,
		&d.Active,
		&d.LastLogin,
		&d.IP,
		&d.Created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserDevice{}, fmt.Errorf("device: %w", ErrNotFound)
		}
		return model.UserDevice{}, fmt.Errorf("query device: %w", err)
	}
	return d, nil
}

// GetByUUID retrieves a device by external UUID, scoped to its owner.
func (r *deviceRepo) GetByUUID(ctx context.Context, userID int64, deviceUUID string) (model.UserDevice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM user_devices WHERE uuid = $1 AND user_id = $2`,
		deviceUUID, userID)
	return scanDevice(row)
}

// GetByPushToken retrieves the user's device carrying the push token.
func (r *deviceRepo) GetByPushToken(ctx context.Context, userID int64, pushToken string) (model.UserDevice, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+deviceColumns+` FROM user_devices
		WHERE push_token = $1 AND user_id = $2
		ORDER BY created DESC
		LIMIT 1
	`, pushToken, userID)
	return scanDevice(row)
}

// Insert creates a new device row.
func (r *deviceRepo) Insert(ctx context.Context, d model.UserDevice) (model.UserDevice, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO user_devices (user_id, uuid, name, os, os_version, app_version,
			device_type, push_token, active, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+deviceColumns,
		d.UserID, d.UUID, d.Name, d.OS, d.OSVersion, d.AppVersion,
		d.DeviceType, d.PushToken, d.Active, d.IP)
	return scanDevice(row)
}

// Update rewrites the mutable fields of an existing device.
func (r *deviceRepo) Update(ctx context.Context, d model.UserDevice) (model.UserDevice, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE user_devices
		SET name = $2, os = $3, os_version = $4, app_version = $5,
			device_type = $6, push_token = $7, active = $8, ip = $9
		WHERE id = $1
		RETURNING `+deviceColumns,
		d.ID, d.Name, d.OS, d.OSVersion, d.AppVersion,
		d.DeviceType, d.PushToken, d.Active, d.IP)
	return scanDevice(row)
}

// TouchLastLogin records a successful authentication on the device.
func (r *deviceRepo) TouchLastLogin(ctx context.Context, userID int64, deviceUUID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_devices SET last_login = $3 WHERE uuid = $1 AND user_id = $2
	`, deviceUUID, userID, at)
	if err != nil {
		return fmt.Errorf("touch device last login: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("device: %w", ErrNotFound)
	}
	return nil
}
