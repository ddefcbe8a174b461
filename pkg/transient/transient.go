package transient

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A ttl <= 0 keeps the entry until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Take returns the value stored under key and deletes it.
	// Returns ErrNotFound if the key does not exist or has expired.
	Take(ctx context.Context, key string) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment adds one to the counter stored under key and returns the new value.
	// A missing key is created at 1 with no expiry; an existing entry keeps its expiry.
	Increment(ctx context.Context, key string) (int64, error)
}

// Counter reads the integer stored under key. A missing key reads as zero.
func Counter(ctx context.Context, s Store, key string) (int64, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrNotCounter, err)
	}
	return n, nil
}
