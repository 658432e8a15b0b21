package verification

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

func setupTestCache(t *testing.T, ttl time.Duration) (*RedisProofCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisProofCache(client, ttl), mr
}

func TestRedisProofCacheRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	ctx := context.Background()
	tok := strings.Repeat("c", 64)
	proof := &Proof{
		IncidentInternalID: 42,
		VersionNumber:      3,
		CreatedAt:          time.Date(2024, 2, 1, 9, 30, 0, 123000, time.UTC),
		OrganizationName:   "Acme GmbH",
	}

	require.NoError(t, cache.Set(ctx, tok, proof))
	assert.True(t, mr.Exists(proofKeyPrefix+tok))
	assert.Equal(t, time.Minute, mr.TTL(proofKeyPrefix+tok))

	got, ok, err := cache.Get(ctx, tok)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, proof, got)
}

func TestRedisProofCacheMissAndExpiry(t *testing.T) {
	cache, mr := setupTestCache(t, time.Second)
	ctx := context.Background()
	tok := strings.Repeat("d", 64)

	got, ok, err := cache.Get(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, tok, &Proof{VersionNumber: 1}))
	mr.FastForward(2 * time.Second)

	_, ok, err = cache.Get(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProofCacheDelete(t *testing.T) {
	cache, mr := setupTestCache(t, 0)
	ctx := context.Background()
	a, b := strings.Repeat("a", 64), strings.Repeat("b", 64)

	require.NoError(t, cache.Set(ctx, a, &Proof{VersionNumber: 1}))
	require.NoError(t, cache.Set(ctx, b, &Proof{VersionNumber: 2}))
	assert.Equal(t, defaultCacheTTL, mr.TTL(proofKeyPrefix+a))

	require.NoError(t, cache.Delete(ctx, a, b))
	assert.False(t, mr.Exists(proofKeyPrefix+a))
	assert.False(t, mr.Exists(proofKeyPrefix+b))
	assert.NoError(t, cache.Delete(ctx))
}

func TestRedisProofCacheUnavailable(t *testing.T) {
	cache, mr := setupTestCache(t, time.Minute)
	mr.Close()

	_, _, err := cache.Get(context.Background(), strings.Repeat("e", 64))
	assert.Error(t, err)
}
