package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/netscore/server/internal/auth"
	"github.com/netscore/server/internal/middleware"
	"github.com/netscore/server/internal/notify"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.AuthService
	loginLimit  *middleware.RateLimiter
	authLimit   *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler with per-IP limits on the
// login and authenticate endpoints.
func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		loginLimit:  middleware.NewRateLimiter(10*time.Minute, 10),
		authLimit:   middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// deviceRequest mirrors auth.DeviceInput on the wire.
type deviceRequest struct {
	UUID       string  `json:"uuid,omitempty"`
	Name       string  `json:"name"`
	OS         *string `json:"os,omitempty"`
	OSVersion  *string `json:"os_version,omitempty"`
	AppVersion *string `json:"app_version,omitempty"`
	DeviceType *string `json:"device_type,omitempty"`
	PushToken  *string `json:"push_token,omitempty"`
}

type loginRequest struct {
	Identifier string         `json:"identifier"`
	Device     *deviceRequest `json:"device,omitempty"`
}

type loginResponse struct {
	Message    string `json:"message"`
	DeviceUUID string `json:"device_uuid,omitempty"`
}

type authenticateRequest struct {
	Identifier   string `json:"identifier"`
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	DeviceUUID   string `json:"device_uuid,omitempty"`
}

type userResponse struct {
	ID            int64   `json:"id"`
	Email         string  `json:"email"`
	Username      *string `json:"username,omitempty"`
	EmailVerified bool    `json:"email_verified"`
}

type tokensResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	TokenType    string        `json:"token_type"`
	TokenExpire  time.Time     `json:"token_expire"`
	User         *userResponse `json:"user,omitempty"`
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		respondWithError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	ip := middleware.ClientIP(r)
	if !h.loginLimit.Allow(ip) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var device *auth.DeviceInput
	if req.Device != nil {
		device = &auth.DeviceInput{
			UUID:       req.Device.UUID,
			Name:       req.Device.Name,
			OS:         req.Device.OS,
			OSVersion:  req.Device.OSVersion,
			AppVersion: req.Device.AppVersion,
			DeviceType: req.Device.DeviceType,
			PushToken:  req.Device.PushToken,
			IP:         &ip,
		}
	}

	result, err := h.authService.Login(r.Context(), req.Identifier, device, ip)
	if err != nil {
		log.Printf("login failed for %s: %v", notify.MaskEmail(req.Identifier), err)
		respondWithAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Message:    "verification code sent",
		DeviceUUID: result.DeviceUUID,
	})
}

// HandleAuthenticate handles POST /auth/authenticate
func (h *AuthHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Code = strings.TrimSpace(req.Code)
	if req.Identifier == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "identifier and code are required")
		return
	}

	if !h.authLimit.Allow(middleware.ClientIP(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	tokens, err := h.authService.Authenticate(r.Context(),
		req.Identifier, req.Code, req.ClientID, req.ClientSecret, req.DeviceUUID)
	if err != nil {
		log.Printf("authenticate failed for %s: %v", notify.MaskEmail(req.Identifier), err)
		respondWithAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "bearer",
		TokenExpire:  tokens.TokenExpire,
		User: &userResponse{
			ID:            tokens.User.ID,
			Email:         tokens.User.Email,
			Username:      tokens.User.Username,
			EmailVerified: tokens.User.EmailVerified,
		},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.authService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondWithAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokensResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   "bearer",
		TokenExpire: tokens.TokenExpire,
	})
}

type logoutRequest struct {
	AccessToken string `json:"access_token"`
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.authService.Logout(r.Context(), req.AccessToken); err != nil {
		respondWithError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe handles GET /me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondWithJSON(w, http.StatusOK, userResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		EmailVerified: user.EmailVerified,
	})
}

// respondWithAuthError maps the auth failure taxonomy onto status codes.
func respondWithAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidClient),
		errors.Is(err, auth.ErrNoCodeIssued),
		errors.Is(err, auth.ErrInvalidCode),
		errors.Is(err, auth.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidDevice):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUserInactive):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
