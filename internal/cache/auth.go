package cache

import (
	"context"
	"time"
)

const (
	// secretCachePrefix is the Redis key prefix for validated-secret cache
	// entries, avoiding an argon2 verify (expensive by design) on every
	// request.
	secretCachePrefix = "auth:secret:"
	secretCacheTTL     = 5 * time.Minute
)

// GetSecretValid returns the cached validity of a secret hash. ok is false
// on a cache miss.
func (c *Cache) GetSecretValid(ctx context.Context, secretHash string) (valid bool, ok bool) {
	val, err := c.client.Get(ctx, secretCachePrefix+secretHash).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// SetSecretValid caches whether a secret hash verified successfully.
func (c *Cache) SetSecretValid(ctx context.Context, secretHash string, valid bool) error {
	val := "0"
	if valid {
		val = "1"
	}
	return c.client.Set(ctx, secretCachePrefix+secretHash, val, secretCacheTTL).Err()
}
