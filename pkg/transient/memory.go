package transient

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// item holds a stored value with its expiration time.
type item struct {
	expiresAt time.Time // zero value = never expires
	value     string
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Memory is an in-memory Store with TTL-based expiration.
type Memory struct {
	items  map[string]item
	opts   *memoryOptions
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewMemory creates an in-memory store.
//
//	s := transient.NewMemory(transient.WithCleanupInterval(30 * time.Second))
//	defer s.Close()
func NewMemory(opts ...MemoryOption) *Memory {
	o := defaultMemoryOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Memory{
		items: make(map[string]item),
		opts:  o,
		done:  make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go m.janitor()
	}

	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return it.value, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = m.opts.now().Add(ttl)
	}
	m.items[key] = it

	return nil
}

// Take implements Store.
func (m *Memory) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}

	it, ok := m.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	delete(m.items, key)
	return it.value, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Increment implements Store.
func (m *Memory) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	it, ok := m.lookup(key)
	if !ok {
		m.items[key] = item{value: "1"}
		return 1, nil
	}

	n, err := strconv.ParseInt(it.value, 10, 64)
	if err != nil {
		return 0, ErrNotCounter
	}
	n++
	it.value = strconv.FormatInt(n, 10)
	m.items[key] = it

	return n, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	n := 0
	for _, it := range m.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// Close stops the background janitor goroutine and marks the store as closed.
// Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)

	return nil
}

// lookup returns a live entry, dropping it if expired.
// Caller must hold the mutex.
func (m *Memory) lookup(key string) (item, bool) {
	it, ok := m.items[key]
	if !ok {
		return item{}, false
	}
	if it.expired(m.opts.now()) {
		delete(m.items, key)
		return item{}, false
	}
	return it, true
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now()
	for key, it := range m.items {
		if it.expired(now) {
			delete(m.items, key)
		}
	}
}

var _ Store = (*Memory)(nil)
