package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
// Suitable for tests and single-instance development servers.
type MemoryStore struct {
	byID    map[string]*Session
	byToken map[string]string // token -> id
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
	}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	if s.Token == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID[s.ID] = clone(s)
	m.byToken[s.Token] = s.ID
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return clone(s), nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.byID[s.ID]
	if !ok {
		return ErrNotFound
	}
	if old.Token != s.Token {
		delete(m.byToken, old.Token)
		m.byToken[s.Token] = s.ID
	}
	m.byID[s.ID] = clone(s)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(id)
	return nil
}

// DeleteByUserID implements Store.
func (m *MemoryStore) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.byID {
		if s.UserID != nil && *s.UserID == userID {
			m.deleteLocked(id)
		}
	}
	return nil
}

// Touch implements Store.
func (m *MemoryStore) Touch(_ context.Context, id string, lastActiveAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.LastActiveAt = lastActiveAt
	return nil
}

// DeleteExpired implements Store.
func (m *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.byID {
		if s.IsExpired() {
			m.deleteLocked(id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *MemoryStore) deleteLocked(id string) {
	if s, ok := m.byID[id]; ok {
		delete(m.byToken, s.Token)
		delete(m.byID, id)
	}
}

// clone copies s so callers cannot mutate stored state.
func clone(s *Session) *Session {
	c := *s
	c.Values = maps.Clone(s.Values)
	if s.UserID != nil {
		uid := *s.UserID
		c.UserID = &uid
	}
	c.dirty = false
	c.isNew = false
	return &c
}

var _ Store = (*MemoryStore)(nil)
