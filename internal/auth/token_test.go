package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpirySpec(t *testing.T) {
	tests := []struct {
		spec string
		want time.Duration
	}{
		{"30d", 30 * 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"60m", 60 * time.Minute},
		{"900s", 900 * time.Second},
		{"", 30 * 24 * time.Hour},
		{"banana", 30 * 24 * time.Hour},
		{"5x", 30 * 24 * time.Hour},
		{"d30", 30 * 24 * time.Hour},
		{"-5d", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseExpirySpec(tt.spec))
		})
	}
}

func TestTokenService_SignAndVerify(t *testing.T) {
	svc := NewTokenService("test-secret", "30d", "90d")

	access, err := svc.SignAccessToken(42)
	require.NoError(t, err)
	refresh, err := svc.SignRefreshToken(42)
	require.NoError(t, err)

	accessClaims, err := svc.VerifyToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), accessClaims.UserID)
	assert.Equal(t, TokenTypeAccess, accessClaims.TokenType)

	refreshClaims, err := svc.VerifyToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenService_VerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", "30d", "90d").SignAccessToken(1)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", "30d", "90d").VerifyToken(token)
	assert.Error(t, err)
}

func TestTokenService_VerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("secret", "30d", "90d")
	_, err := svc.VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestTokenService_AccessTokenExpiryDefaultsTo30Days(t *testing.T) {
	svc := NewTokenService("secret", "nonsense", "90d")
	expire := svc.AccessTokenExpiry()
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), expire, time.Minute)
}
