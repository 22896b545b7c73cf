package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// RedisCache stores opaque serialized values keyed by string.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *RedisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// SetNoExpiry stores the value until it is explicitly deleted.
func (c *RedisCache) SetNoExpiry(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, 0).Err()
}

// Delete removes the given keys. Missing keys are not an error.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ErrStaleFill is returned by SetIfGeneration when the key was invalidated
// after the caller read its generation.
var ErrStaleFill = errors.New("cache fill superseded by a newer write")

const generationPrefix = "gen:"

func generationKey(key string) string {
	return generationPrefix + key
}

// Generation returns the invalidation counter of key, 0 if it was never
// invalidated. Read it before loading the value that will fill the key.
func (c *RedisCache) Generation(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetIfGeneration stores value only while the generation of key is still gen.
// A zero ttl keeps the value until it is invalidated.
func (c *RedisCache) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) error {
	genKey := generationKey(key)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleFill
	}
	return err
}

// Invalidate deletes keys and bumps their generations in one transaction, so
// fills prepared from data read before the call are dropped.
func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, key := range keys {
			pipe.Incr(ctx, generationKey(key))
		}
		return nil
	})
	return err
}
