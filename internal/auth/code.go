package auth

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/netscore/server/internal/cache"
	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/repo"
)

const (
	// CodeExpiry bounds the validity window of a verification code and
	// the TTL of its cache line.
	CodeExpiry = 15 * time.Minute

	// DebugCode is issued in debug mode when email delivery debugging is
	// not explicitly enabled. Gated by an explicit configuration flag so
	// it cannot activate in production.
	DebugCode = "123456"

	// TesterCode is the fixed code for configured tester accounts, used
	// by store-review logins regardless of debug mode.
	TesterCode = "789654"

	codeLength         = 6
	codeCacheKeyPrefix = "NC_T"
)

// CodeIssuerConfig carries the override policy for code generation.
type CodeIssuerConfig struct {
	// TesterEmails are exact addresses, or prefix matches when the entry
	// ends with '*'.
	TesterEmails      []string
	DebugMode         bool
	EmailDebugEnabled bool
}

// CodeIssuer owns the verification code lifecycle: choosing the code
// value, caching the plaintext for idempotent resends, persisting only
// the bcrypt hash, and checking candidates against expiry and hash.
type CodeIssuer struct {
	cache *cache.SecureCache
	codes repo.CodeRepo
	cfg   CodeIssuerConfig
}

// NewCodeIssuer creates a new code issuer.
func NewCodeIssuer(c *cache.SecureCache, codes repo.CodeRepo, cfg CodeIssuerConfig) *CodeIssuer {
	return &CodeIssuer{cache: c, codes: codes, cfg: cfg}
}

func codeCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", codeCacheKeyPrefix, userID)
}

// isTesterEmail matches the configured tester list: exact match, or
// prefix match for entries ending in '*'.
func (i *CodeIssuer) isTesterEmail(email string) bool {
	email = strings.ToLower(email)
	for _, tester := range i.cfg.TesterEmails {
		if strings.HasSuffix(tester, "*") {
			if strings.HasPrefix(email, strings.TrimSuffix(tester, "*")) {
				return true
			}
		} else if email == tester {
			return true
		}
	}
	return false
}

// Issue creates a fresh unverified code row for the user and returns
// the plaintext for out-of-band delivery. Value priority: tester code,
// then debug code, then the cached code from a recent request (so a
// resend within the TTL repeats the same code), then a new 6-digit one.
func (i *CodeIssuer) Issue(ctx context.Context, user model.User, deviceID *int64, ip *string) (string, error) {
	cacheKey := codeCacheKey(user.ID)

	var code string
	switch {
	case i.isTesterEmail(user.Email):
		code = TesterCode
	case i.cfg.DebugMode && !i.cfg.EmailDebugEnabled:
		code = DebugCode
	default:
		cached, err := i.cache.Get(ctx, cacheKey)
		if err != nil {
			return "", fmt.Errorf("code cache lookup: %w", err)
		}
		if cached != "" {
			code = cached
		} else {
			code = generateNumericCode(codeLength)
		}
	}

	if err := i.cache.Set(ctx, cacheKey, code, CodeExpiry); err != nil {
		return "", fmt.Errorf("code cache write: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	if _, err := i.codes.Create(ctx, user.ID, deviceID, string(hash), ip); err != nil {
		return "", fmt.Errorf("persist code: %w", err)
	}

	return code, nil
}

// Verify checks a candidate against a stored code row. It fails closed
// when no hash is stored, deletes the row and returns false once the
// expiry window has passed, and otherwise compares against the bcrypt
// hash. Deletion of an expired row is idempotent: a retried check still
// returns false rather than an error.
func (i *CodeIssuer) Verify(ctx context.Context, code model.VerificationCode, candidate string) (bool, error) {
	if candidate == "" || code.TokenHash == "" {
		return false, nil
	}

	if time.Since(code.Created) > CodeExpiry {
		if err := i.codes.Delete(ctx, code.ID); err != nil {
			return false, fmt.Errorf("delete expired code: %w", err)
		}
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(code.TokenHash), []byte(candidate))
	return err == nil, nil
}

// generateNumericCode mixes a random component with the current
// timestamp and truncates to the requested digit count.
func generateNumericCode(size int) string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	combined := fmt.Sprintf("%d%d", rng.Intn(1000000), time.Now().UnixMilli())
	return combined[:size]
}
