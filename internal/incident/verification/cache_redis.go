package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 10 * time.Minute
	proofKeyPrefix  = "breachledger:proof:"
)

// RedisProofCache keeps proofs in Redis under a TTL. Proofs for a token never
// change, so the TTL only bounds how long a deleted incident stays verifiable
// when a purge is missed.
type RedisProofCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisProofCache(client redis.UniversalClient, ttl time.Duration) *RedisProofCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisProofCache{client: client, ttl: ttl}
}

func (c *RedisProofCache) Get(ctx context.Context, token string) (*Proof, bool, error) {
	raw, err := c.client.Get(ctx, proofKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get proof: %w", err)
	}
	var proof Proof
	if err := json.Unmarshal(raw, &proof); err != nil {
		return nil, false, fmt.Errorf("decode proof: %w", err)
	}
	return &proof, true, nil
}

func (c *RedisProofCache) Set(ctx context.Context, token string, proof *Proof) error {
	raw, err := json.Marshal(proof)
	if err != nil {
		return fmt.Errorf("encode proof: %w", err)
	}
	if err := c.client.Set(ctx, proofKeyPrefix+token, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set proof: %w", err)
	}
	return nil
}

func (c *RedisProofCache) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = proofKeyPrefix + t
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete proofs: %w", err)
	}
	return nil
}
