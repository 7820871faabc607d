package auth

import "errors"

// Failure taxonomy surfaced to callers. None of these are retried
// internally; the HTTP layer maps them onto status codes.
var (
	ErrInvalidClient = errors.New("invalid client credentials")
	ErrUserNotFound  = errors.New("user not found")
	ErrNoCodeIssued  = errors.New("no verification code found, request a new one")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrInvalidDevice = errors.New("invalid device uuid")
	ErrUserInactive  = errors.New("user not found or inactive")
	ErrInvalidToken  = errors.New("invalid or expired token")
)
