package authn

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores token verdicts in Redis so several service
// instances share one verdict per token. Raw tokens never reach Redis;
// keys are a digest of the token.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed verdict cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) key(token string) string {
	return fmt.Sprintf("examroom:verdict:%x", sha256.Sum256([]byte(token)))
}

// Get returns the cached verdict for a token, if present.
func (c *RedisCache) Get(ctx context.Context, token string) (*Verification, bool, error) {
	data, err := c.client.Get(ctx, c.key(token)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var verdict Verification
	if err := json.Unmarshal([]byte(data), &verdict); err != nil {
		return nil, false, err
	}
	return &verdict, true, nil
}

// Set stores a verdict with the given TTL.
func (c *RedisCache) Set(ctx context.Context, token string, verdict *Verification, ttl time.Duration) error {
	data, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(token), data, ttl).Err()
}
