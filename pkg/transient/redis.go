package transient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store.
// The client should be obtained from pkg/redis.Open or pkg/redis.MustOpen.
// Keys are stored as "{prefix}:{key}"; an empty prefix stores keys as-is.
//
//	client := redis.MustOpen(ctx, os.Getenv("REDIS_URL"))
//	s := transient.NewRedis(client, "transient")
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	// Redis interprets 0 as no expiration.
	return r.client.Set(ctx, r.key(key), value, max(ttl, 0)).Err()
}

// Take implements Store using GETDEL, so concurrent callers cannot both redeem a key.
func (r *Redis) Take(ctx context.Context, key string) (string, error) {
	v, err := r.client.GetDel(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Increment implements Store using INCR.
func (r *Redis) Increment(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil && strings.Contains(err.Error(), "not an integer") {
		return 0, errors.Join(ErrNotCounter, err)
	}
	return n, err
}

func (r *Redis) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

var _ Store = (*Redis)(nil)
