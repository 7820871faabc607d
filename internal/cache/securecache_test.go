package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SecureCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis must start")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := New(client, "test-cache-secret")
	require.NoError(t, err)
	return c, mr
}

func TestSecureCache_SetGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "NC_T42", "482917", 15*time.Minute))

	got, err := c.Get(ctx, "NC_T42")
	require.NoError(t, err)
	assert.Equal(t, "482917", got)
}

func TestSecureCache_GetMissReturnsEmpty(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecureCache_LiteralKeyAndValueNeverStored(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "NC_T7", "654321", time.Minute))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "NC_T7", "raw key must not appear in the store")
	assert.True(t, strings.HasPrefix(keys[0], "NC_SK_"))
	assert.LessOrEqual(t, len(keys[0]), 250)

	stored, err := mr.Get(keys[0])
	require.NoError(t, err)
	assert.NotContains(t, stored, "654321", "plaintext value must not appear in the store")
}

func TestSecureCache_WritesRequireTTL(t *testing.T) {
	c, _ := newTestCache(t)

	err := c.Set(context.Background(), "k", "v", 0)
	assert.Error(t, err)
}

func TestSecureCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecureCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSecureCache_Validate(t *testing.T) {
	c, _ := newTestCache(t)

	assert.True(t, c.Validate("482917", "482917"))
	assert.False(t, c.Validate("482917", "482918"))
	assert.False(t, c.Validate("", "482917"))
}

func TestNew_RejectsEmptySecret(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err = New(client, "")
	assert.Error(t, err)
}
