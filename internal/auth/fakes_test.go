package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/repo"
)

// In-memory repo fakes mirroring the Postgres behavior the service
// relies on: ErrNotFound on misses, lower-cased lookups, ordering by
// creation time.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]model.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username != nil && *u.Username == strings.ToLower(username) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user: %w", repo.ErrNotFound)
}

func (r *fakeUserRepo) Create(ctx context.Context, email string, username *string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if username != nil {
		lower := strings.ToLower(*username)
		username = &lower
	}
	u := model.User{
		ID:         r.nextID,
		Email:      strings.ToLower(email),
		Username:   username,
		IsActive:   true,
		DateJoined: time.Now(),
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) MarkAuthenticated(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user: %w", repo.ErrNotFound)
	}
	u.EmailVerified = true
	u.LastLogin = &at
	r.users[id] = u
	return nil
}

func (r *fakeUserRepo) put(u model.User) model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	}
	r.users[u.ID] = u
	return u
}

type fakeCodeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.VerificationCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{rows: make(map[int64]*model.VerificationCode)}
}

func (r *fakeCodeRepo) Create(ctx context.Context, userID int64, deviceID *int64, tokenHash string, ip *string) (model.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row := &model.VerificationCode{
		ID:        r.nextID,
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: tokenHash,
		IP:        ip,
		Created:   time.Now(),
	}
	r.rows[row.ID] = row
	return *row, nil
}

func (r *fakeCodeRepo) LatestUnverified(ctx context.Context, userID int64) (model.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.VerificationCode
	for _, row := range r.rows {
		if row.UserID != userID || row.Verified {
			continue
		}
		if latest == nil || row.Created.After(latest.Created) ||
			(row.Created.Equal(latest.Created) && row.ID > latest.ID) {
			latest = row
		}
	}
	if latest == nil {
		return model.VerificationCode{}, fmt.Errorf("verification code: %w", repo.ErrNotFound)
	}
	return *latest, nil
}

func (r *fakeCodeRepo) MarkVerified(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Verified {
		return fmt.Errorf("verification code: %w", repo.ErrNotFound)
	}
	row.Verified = true
	return nil
}

func (r *fakeCodeRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

// backdate shifts a row's creation time, for expiry tests.
func (r *fakeCodeRepo) backdate(id int64, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.Created = row.Created.Add(-by)
	}
}

func (r *fakeCodeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeDeviceRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.UserDevice
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{rows: make(map[int64]*model.UserDevice)}
}

func (r *fakeDeviceRepo) GetByUUID(ctx context.Context, userID int64, deviceUUID string) (model.UserDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.UserID == userID && d.UUID == deviceUUID {
			return *d, nil
		}
	}
	return model.UserDevice{}, fmt.Errorf("device: %w", repo.ErrNotFound)
}

func (r *fakeDeviceRepo) GetByPushToken(ctx context.Context, userID int64, pushToken string) (model.UserDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.UserID == userID && d.PushToken != nil && *d.PushToken == pushToken {
			return *d, nil
		}
	}
	return model.UserDevice{}, fmt.Errorf("device: %w", repo.ErrNotFound)
}

func (r *fakeDeviceRepo) Insert(ctx context.Context, d model.UserDevice) (model.UserDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	d.Created = time.Now()
	r.rows[d.ID] = &d
	return d, nil
}

func (r *fakeDeviceRepo) Update(ctx context.Context, d model.UserDevice) (model.UserDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[d.ID]
	if !ok {
		return model.UserDevice{}, fmt.Errorf("device: %w", repo.ErrNotFound)
	}
	d.UserID = existing.UserID
	d.UUID = existing.UUID
	d.Created = existing.Created
	d.LastLogin = existing.LastLogin
	r.rows[d.ID] = &d
	return d, nil
}

func (r *fakeDeviceRepo) TouchLastLogin(ctx context.Context, userID int64, deviceUUID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.UserID == userID && d.UUID == deviceUUID {
			d.LastLogin = &at
			return nil
		}
	}
	return fmt.Errorf("device: %w", repo.ErrNotFound)
}

func (r *fakeDeviceRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type fakeDispatcher struct {
	mu        sync.Mutex
	delivered []string // plaintext codes, in order
	err       error
}

func (d *fakeDispatcher) DeliverVerificationCode(ctx context.Context, email, code, displayName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, code)
	return nil
}

func (d *fakeDispatcher) lastCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.delivered) == 0 {
		return ""
	}
	return d.delivered[len(d.delivered)-1]
}
