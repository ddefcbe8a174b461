package credential

import (
	"context"
	"maps"
	"sync"
)

// StaticUser is one entry of a Static provider.
type StaticUser struct {
	Fields       map[string]string
	PasswordHash string
	HasSecret    bool
}

// Static serves a fixed set of users keyed by identifier.
// Lookups are counted, which tests use to assert that a lookup did not happen.
type Static struct {
	users map[string]StaticUser
	key   string
	calls int
	mu    sync.Mutex
}

// NewStatic creates a provider over users. key names the identity field.
func NewStatic(key string, users map[string]StaticUser) *Static {
	return &Static{users: maps.Clone(users), key: key}
}

// GetUser implements Provider.
func (s *Static) GetUser(_ context.Context, identifier string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	u, ok := s.users[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{Fields: maps.Clone(u.Fields), PasswordHash: u.PasswordHash}, nil
}

// Key implements Provider.
func (s *Static) Key() string {
	return s.key
}

// HasSecret implements Provider.
func (s *Static) HasSecret(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[identifier]
	return ok && u.HasSecret, nil
}

// Calls returns how many times GetUser was called.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ Provider = (*Static)(nil)
