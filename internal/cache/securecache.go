package cache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "NC_SK_"
	maxKeyLen = 250
)

// SecureCache is a blind-indexed ephemeral key-value wrapper around
// Redis. Lookup keys are HMAC-blinded so the literal key never appears
// in the backing store; values are sealed with AES-GCM under a key
// derived from the server secret, so an operator with read access to
// Redis cannot recover active verification codes while the service
// itself can still retrieve them for idempotent resends. Every write
// carries a mandatory TTL.
type SecureCache struct {
	client *redis.Client
	secret []byte
	aead   cipher.AEAD
}

// New creates a SecureCache keyed by the server secret.
func New(client *redis.Client, secret string) (*SecureCache, error) {
	if secret == "" {
		return nil, errors.New("cache secret is empty")
	}
	sealKey := sha256.Sum256([]byte("seal:" + secret))
	block, err := aes.NewCipher(sealKey[:])
	if err != nil {
		return nil, fmt.Errorf("init cache cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init cache aead: %w", err)
	}
	return &SecureCache{
		client: client,
		secret: []byte(secret),
		aead:   aead,
	}, nil
}

// secureKey blinds the lookup key with HMAC-SHA256 and caps the result.
func (c *SecureCache) secureKey(key string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(key))
	full := keyPrefix + hex.EncodeToString(mac.Sum(nil))
	if len(full) > maxKeyLen {
		full = full[:maxKeyLen]
	}
	return full
}

// secureValue returns the keyed one-way transform of a value, used for
// equality checks via Validate.
func (c *SecureCache) secureValue(value string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// seal encrypts a value with a fresh nonce; output is base64(nonce||ciphertext).
func (c *SecureCache) seal(value string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cache nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (c *SecureCache) open(stored string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("cache value decode: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("cache value truncated")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("cache value open: %w", err)
	}
	return string(plain), nil
}

// Set stores the value under the blinded key with a mandatory expiry.
func (c *SecureCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("cache writes require a positive ttl")
	}
	sealed, err := c.seal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.secureKey(key), sealed, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Get returns the stored value for the key, or "" with a nil error on a miss.
func (c *SecureCache) Get(ctx context.Context, key string) (string, error) {
	stored, err := c.client.Get(ctx, c.secureKey(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache get: %w", err)
	}
	return c.open(stored)
}

// Delete removes the entry for the key.
func (c *SecureCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.secureKey(key)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Validate reports whether candidate matches a stored value without
// exposing either; the comparison runs over the keyed transforms in
// constant time.
func (c *SecureCache) Validate(storedValue, candidate string) bool {
	if storedValue == "" {
		return false
	}
	a := c.secureValue(storedValue)
	b := c.secureValue(candidate)
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
