package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis namespaces every key under prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, r.key(key))
	pipe.Expire(ctx, r.key(key), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *Redis) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *Redis) Flag(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), "1", ttl).Err()
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis reports -2 for a missing key and -1 for a key without expiry.
	switch ttl {
	case -2:
		return 0, false, nil
	case -1:
		return 0, true, nil
	}
	return ttl, true, nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Del(ctx, full...).Err()
}
