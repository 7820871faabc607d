package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/repo"
)

// DeviceInput carries the client-supplied device fields for an upsert.
// All fields except Name are optional.
type DeviceInput struct {
	UUID       string
	Name       string
	OS         *string
	OSVersion  *string
	AppVersion *string
	DeviceType *string
	PushToken  *string
	IP         *string
}

// DeviceRegistry binds login attempts to stable device identities.
type DeviceRegistry struct {
	devices repo.DeviceRepo
}

// NewDeviceRegistry creates a new device registry.
func NewDeviceRegistry(devices repo.DeviceRepo) *DeviceRegistry {
	return &DeviceRegistry{devices: devices}
}

// Register upserts a device for the user. Resolution order:
//  1. a supplied UUID must match one of the user's devices, which is
//     then updated in place — an unresolvable UUID is treated as
//     tampering or staleness, not a new device, and fails;
//  2. a supplied push token matching an existing device is a
//     re-registration and updates that device;
//  3. otherwise a new device is inserted under a fresh UUID.
func (r *DeviceRegistry) Register(ctx context.Context, userID int64, in DeviceInput) (model.UserDevice, error) {
	if in.UUID != "" {
		existing, err := r.devices.GetByUUID(ctx, userID, in.UUID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return model.UserDevice{}, ErrInvalidDevice
			}
			return model.UserDevice{}, fmt.Errorf("resolve device by uuid: %w", err)
		}
		return r.devices.Update(ctx, applyInput(existing, in))
	}

	if in.PushToken != nil && *in.PushToken != "" {
		existing, err := r.devices.GetByPushToken(ctx, userID, *in.PushToken)
		if err == nil {
			return r.devices.Update(ctx, applyInput(existing, in))
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.UserDevice{}, fmt.Errorf("resolve device by push token: %w", err)
		}
	}

	fresh := applyInput(model.UserDevice{
		UserID: userID,
		UUID:   uuid.NewString(),
		Active: true,
	}, in)
	return r.devices.Insert(ctx, fresh)
}

// applyInput overlays the supplied mutable fields onto a device row.
func applyInput(d model.UserDevice, in DeviceInput) model.UserDevice {
	if in.Name != "" {
		d.Name = in.Name
	}
	if in.OS != nil {
		d.OS = in.OS
	}
	if in.OSVersion != nil {
		d.OSVersion = in.OSVersion
	}
	if in.AppVersion != nil {
		d.AppVersion = in.AppVersion
	}
	if in.DeviceType != nil {
		d.DeviceType = in.DeviceType
	}
	if in.PushToken != nil {
		d.PushToken = in.PushToken
	}
	if in.IP != nil {
		d.IP = in.IP
	}
	return d
}
