package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the claims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// defaultTokenExpiry is the fallback when a lifetime specifier does not parse.
const defaultTokenExpiry = 30 * 24 * time.Hour

var expirySpecRe = regexp.MustCompile(`^(\d+)([dhms])$`)

// Claims represents the signed token claims: the subject user and a
// token-type discriminator distinguishing access from refresh tokens.
type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access/refresh tokens with a
// symmetric secret.
type TokenService struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenService creates a token service. Lifetimes are duration
// specifiers of the form <integer><unit> with unit in d/h/m/s; an
// unparseable specifier falls back to 30 days.
func NewTokenService(secret, accessExpire, refreshExpire string) *TokenService {
	return &TokenService{
		secret:        []byte(secret),
		accessExpiry:  ParseExpirySpec(accessExpire),
		refreshExpiry: ParseExpirySpec(refreshExpire),
	}
}

// ParseExpirySpec parses a lifetime specifier like "30d", "24h", "60m"
// or "900s". Invalid input yields the 30-day default.
func ParseExpirySpec(spec string) time.Duration {
	m := expirySpecRe.FindStringSubmatch(spec)
	if m == nil {
		return defaultTokenExpiry
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultTokenExpiry
	}
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour
	case "h":
		return time.Duration(n) * time.Hour
	case "m":
		return time.Duration(n) * time.Minute
	default:
		return time.Duration(n) * time.Second
	}
}

// AccessTokenExpiry returns the wall-clock time at which an access
// token minted now will expire.
func (s *TokenService) AccessTokenExpiry() time.Time {
	return time.Now().Add(s.accessExpiry)
}

// SignAccessToken mints a signed access token for the user.
func (s *TokenService) SignAccessToken(userID int64) (string, error) {
	return s.sign(userID, TokenTypeAccess, s.accessExpiry)
}

// SignRefreshToken mints a signed refresh token for the user.
func (s *TokenService) SignRefreshToken(userID int64) (string, error) {
	return s.sign(userID, TokenTypeRefresh, s.refreshExpiry)
}

func (s *TokenService) sign(userID int64, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// VerifyToken verifies the signature and expiry of a token and returns
// its claims.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
