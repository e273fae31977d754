package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store defines the interface for fragment cache backends
type Store interface {
	// Get retrieves a value from the store
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL; zero uses the store default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the store
	Delete(ctx context.Context, key string) error

	// Clear removes all values under the store prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the store
	Exists(ctx context.Context, key string) (bool, error)
}

// StoreConfig holds common configuration for store backends
type StoreConfig struct {
	// DefaultTTL is the time-to-live used when Set receives zero
	DefaultTTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
}

// DefaultStoreConfig returns a default store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DefaultTTL: time.Hour,
		Prefix:     "serializer:",
	}
}

// ErrCacheMiss is returned when a key is not found in the store
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

// ComputeFunc produces the bytes stored on a miss
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Fetch returns the value stored under key, or computes, stores and returns it.
// hit reports whether the value came from the store. Errors other than a miss
// are returned as is; nothing is computed in that case.
func Fetch(ctx context.Context, store Store, key string, ttl time.Duration, compute ComputeFunc) (value []byte, hit bool, err error) {
	value, err = store.Get(ctx, key)
	if err == nil {
		return value, true, nil
	}
	if !IsCacheMiss(err) {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}

	value, err = compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := store.Set(ctx, key, value, ttl); err != nil {
		return nil, false, fmt.Errorf("cache set %s: %w", key, err)
	}
	return value, false, nil
}
