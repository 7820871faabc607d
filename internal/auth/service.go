package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/notify"
	"github.com/netscore/server/internal/repo"
)

// placeholderDomain completes non-email identifiers into a unique,
// undeliverable address for the users table.
const placeholderDomain = "placeholder.com"

// LoginResult is the outcome of a login request. The verification code
// itself travels out-of-band through the notification dispatcher.
type LoginResult struct {
	DeviceUUID string
}

// Tokens is the outcome of a successful authenticate or refresh call.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	TokenExpire  time.Time
	User         model.User
}

// AuthService orchestrates the passwordless login, authenticate,
// refresh and logout protocols, and owns the OAuth2-style client
// application registry. The registry is populated at start-up and
// read-only afterwards, so concurrent request handlers can consult it
// without synchronization.
type AuthService struct {
	users    repo.UserRepo
	codes    repo.CodeRepo
	devices  repo.DeviceRepo
	registry *DeviceRegistry
	issuer   *CodeIssuer
	tokens   *TokenService
	notifier notify.Dispatcher
	apps     map[string]model.ClientApplication
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repo.UserRepo,
	codes repo.CodeRepo,
	devices repo.DeviceRepo,
	registry *DeviceRegistry,
	issuer *CodeIssuer,
	tokens *TokenService,
	notifier notify.Dispatcher,
) *AuthService {
	return &AuthService{
		users:    users,
		codes:    codes,
		devices:  devices,
		registry: registry,
		issuer:   issuer,
		tokens:   tokens,
		notifier: notifier,
		apps:     make(map[string]model.ClientApplication),
	}
}

// RegisterApplication adds an OAuth2-style client to the registry. Call
// only during start-up, before the service handles requests.
func (s *AuthService) RegisterApplication(app model.ClientApplication) {
	s.apps[app.ClientID] = app
}

// validateApplication checks client credentials by exact secret match.
func (s *AuthService) validateApplication(clientID, clientSecret string) bool {
	app, ok := s.apps[clientID]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(app.ClientSecret), []byte(clientSecret)) == 1
}

// resolveUser finds a user by email, then by username.
func (s *AuthService) resolveUser(ctx context.Context, identifier string) (model.User, error) {
	user, err := s.users.GetByEmail(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.User{}, err
	}
	return s.users.GetByUsername(ctx, identifier)
}

// Login resolves or creates the user, optionally upserts the device,
// issues a fresh verification code and hands the plaintext to the
// notification dispatcher. Delivery failure is logged, not returned:
// login success is decoupled from delivery so tester and debug codes
// authenticate even without a working mail path.
func (s *AuthService) Login(ctx context.Context, identifier string, device *DeviceInput, ip string) (LoginResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return LoginResult{}, ErrUserNotFound
	}

	user, err := s.resolveUser(ctx, identifier)
	if errors.Is(err, repo.ErrNotFound) {
		email := identifier
		var username *string
		if !strings.Contains(identifier, "@") {
			email = identifier + "@" + placeholderDomain
			username = &identifier
		}
		user, err = s.users.Create(ctx, email, username)
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("resolve user: %w", err)
	}

	var result LoginResult
	var deviceID *int64
	if device != nil {
		d, err := s.registry.Register(ctx, user.ID, *device)
		if err != nil {
			return LoginResult{}, err
		}
		result.DeviceUUID = d.UUID
		deviceID = &d.ID
	}

	var ipPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	code, err := s.issuer.Issue(ctx, user, deviceID, ipPtr)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue code: %w", err)
	}

	if err := s.notifier.DeliverVerificationCode(ctx, user.Email, code, user.DisplayName()); err != nil {
		log.Printf("failed to deliver verification code to %s: %v", notify.MaskEmail(user.Email), err)
	}

	return result, nil
}

// Authenticate exchanges a valid verification code plus client
// credentials for signed access and refresh tokens.
func (s *AuthService) Authenticate(ctx context.Context, identifier, code, clientID, clientSecret, deviceUUID string) (Tokens, error) {
	if !s.validateApplication(clientID, clientSecret) {
		return Tokens{}, ErrInvalidClient
	}

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Tokens{}, ErrUserNotFound
		}
		return Tokens{}, fmt.Errorf("resolve user: %w", err)
	}

	row, err := s.codes.LatestUnverified(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Tokens{}, ErrNoCodeIssued
		}
		return Tokens{}, fmt.Errorf("load verification code: %w", err)
	}

	ok, err := s.issuer.Verify(ctx, row, code)
	if err != nil {
		return Tokens{}, fmt.Errorf("verify code: %w", err)
	}
	if !ok {
		return Tokens{}, ErrInvalidCode
	}

	now := time.Now()

	if deviceUUID != "" {
		if err := s.devices.TouchLastLogin(ctx, user.ID, deviceUUID, now); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return Tokens{}, fmt.Errorf("touch device: %w", err)
		}
	}

	if err := s.codes.MarkVerified(ctx, row.ID); err != nil {
		return Tokens{}, fmt.Errorf("consume code: %w", err)
	}

	if err := s.users.MarkAuthenticated(ctx, user.ID, now); err != nil {
		return Tokens{}, fmt.Errorf("update user: %w", err)
	}
	user.EmailVerified = true
	user.LastLogin = &now

	accessToken, err := s.tokens.SignAccessToken(user.ID)
	if err != nil {
		return Tokens{}, err
	}
	refreshToken, err := s.tokens.SignRefreshToken(user.ID)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpire:  s.tokens.AccessTokenExpiry(),
		User:         user,
	}, nil
}

// RefreshAccessToken mints a new access token from a valid refresh
// token. The refresh token is not rotated or invalidated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (Tokens, error) {
	claims, err := s.tokens.VerifyToken(refreshToken)
	if err != nil || claims.TokenType != TokenTypeRefresh {
		return Tokens{}, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return Tokens{}, ErrUserInactive
	}

	accessToken, err := s.tokens.SignAccessToken(user.ID)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken: accessToken,
		TokenExpire: s.tokens.AccessTokenExpiry(),
		User:        user,
	}, nil
}

// Logout has no durable effect: session termination is client-side
// token disposal. Token revocation/blacklisting is an extension point.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

// VerifyToken is a pure signature/expiry check; it returns nil on any
// failure rather than an error.
func (s *AuthService) VerifyToken(token string) *Claims {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil
	}
	return claims
}
