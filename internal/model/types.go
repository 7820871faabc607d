package model

import "time"

// User is the root identity. Email is stored lower-cased and unique;
// username is optional, lower-cased and unique when present.
type User struct {
	ID            int64
	Email         string
	Username      *string
	FirstName     *string
	LastName      *string
	IsActive      bool
	IsStaff       bool
	IsSuperuser   bool
	EmailVerified bool
	LastLogin     *time.Time
	DateJoined    time.Time
}

// DisplayName returns the best human-facing name for notifications.
func (u *User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Email
}

// UserDevice represents a client installation owned by a user.
// UUID is the stable external identity and is unique across all users.
type UserDevice struct {
	ID         int64
	UserID     int64
	UUID       string
	Name       string
	OS         *string
	OSVersion  *string
	AppVersion *string
	DeviceType *string
	PushToken  *string
	Active     bool
	LastLogin  *time.Time
	IP         *string
	Created    time.Time
}

// VerificationCode is a one-time login credential. Only the bcrypt hash
// of the code is durable; the plaintext lives in the cache until expiry.
type VerificationCode struct {
	ID        int64
	UserID    int64
	DeviceID  *int64
	TokenHash string
	Verified  bool
	IP        *string
	Created   time.Time
}

// Permission is a capability descriptor, created lazily on first
// reference. Codenames are lower-cased and unique.
type Permission struct {
	ID          int64
	Name        string
	Codename    string
	Description *string
}

// Role groups permissions. A role may be scoped to a resource context
// (content type tag + numeric id) or left global. A disabled role never
// grants its permissions.
type Role struct {
	ID                 int64
	Name               string
	Codename           string
	Description        string
	ProjectContentType *string
	ProjectID          *int64
	Enabled            bool
}

// RolePermission links a role to a permission.
type RolePermission struct {
	ID           int64
	RoleID       int64
	PermissionID int64
	CustomName   *string
}

// UserRole assigns a role to a user, optionally scoped.
type UserRole struct {
	ID                 int64
	UserID             int64
	RoleID             int64
	ProjectContentType *string
	ProjectID          *int64
}

// ClientApplication is an OAuth2-style caller identity registered at
// service start-up and validated on every authenticate call.
type ClientApplication struct {
	ClientID     string
	ClientSecret string
	Name         string
}
