package session

import (
	"context"
	"time"
)

// Store defines the interface for session persistence.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by its token.
	// Returns ErrNotFound if the session doesn't exist.
	// Returns ErrExpired if the session has expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves changes to an existing session, including a rotated token.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by its ID.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes all sessions for a user.
	DeleteByUserID(ctx context.Context, userID string) error

	// Touch updates the LastActiveAt timestamp without loading the full session.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error

	// DeleteExpired removes sessions whose expiry has passed and returns how
	// many were removed. Stores with native expiry may return zero.
	DeleteExpired(ctx context.Context) (int64, error)
}
