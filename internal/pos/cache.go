package pos

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusCacheVersionKey = "pos:status:version"

// StatusCache is a versioned Redis JSON cache in front of the batch
// accounting-status reader. Posting bumps the version, invalidating every
// cached batch at once. A nil client degrades to pass-through.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache instantiates the cache helper.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *StatusCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, statusCacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, statusCacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a cache key carrying the current version.
func (c *StatusCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return joined + ":" + strconv.FormatInt(ver, 10), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *StatusCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("pos: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump advances the cache version, invalidating all cached batches.
func (c *StatusCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, statusCacheVersionKey).Err()
}
