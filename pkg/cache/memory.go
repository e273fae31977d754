package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process store with TTL support
type MemoryStore struct {
	data   sync.Map
	config StoreConfig
	cancel context.CancelFunc
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryStore creates a memory store with the default configuration
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultStoreConfig())
}

// NewMemoryStoreWithConfig creates a memory store and starts its janitor.
// Call Close to stop it.
func NewMemoryStoreWithConfig(config StoreConfig) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryStore{
		config: config,
		cancel: cancel,
	}

	go m.janitor(ctx, time.Minute)

	return m
}

// Get retrieves a value from the store
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key
	value, ok := m.data.Load(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	item := value.(memoryItem)
	if item.expired(time.Now()) {
		m.data.Delete(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}

	// callers must not be able to mutate the stored bytes
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a value with a TTL
func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := memoryItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.data.Store(m.config.Prefix+key, item)
	return nil
}

// Delete removes a value from the store
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Delete(m.config.Prefix + key)
	return nil
}

// Clear removes all values from the store
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Range(func(key, _ any) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

// Exists checks if a live key exists in the store
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fullKey := m.config.Prefix + key
	value, ok := m.data.Load(fullKey)
	if !ok {
		return false, nil
	}
	if value.(memoryItem).expired(time.Now()) {
		m.data.Delete(fullKey)
		return false, nil
	}
	return true, nil
}

// Close stops the janitor goroutine
func (m *MemoryStore) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// janitor periodically removes expired items
func (m *MemoryStore) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired(time.Now())
		}
	}
}

func (m *MemoryStore) evictExpired(now time.Time) {
	m.data.Range(func(key, value any) bool {
		if value.(memoryItem).expired(now) {
			m.data.Delete(key)
		}
		return true
	})
}
