package internal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatehouse/pkg/cookie"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/session"
)

// Default session configuration.
const (
	defaultSessionCookieName = "__sid"
	defaultSessionTTL        = 24 * time.Hour
)

// SessionManager handles session lifecycle and the session cookie.
type SessionManager struct {
	store      session.Store
	cookies    *cookie.Manager
	logger     *slog.Logger
	cookieName string
	ttl        time.Duration
}

// SessionOption configures the SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a new SessionManager with the given store and options.
func NewSessionManager(store session.Store, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:      store,
		cookies:    cookie.New(),
		logger:     logger.NewNope(),
		cookieName: defaultSessionCookieName,
		ttl:        defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionTTL sets how long an anonymous session lives.
// Registered sessions get the TTL passed to Register instead.
func WithSessionTTL(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.ttl = d
		}
	}
}

// WithSessionCookies sets the cookie manager used for the session cookie.
func WithSessionCookies(m *cookie.Manager) SessionOption {
	return func(sm *SessionManager) {
		if m != nil {
			sm.cookies = m
		}
	}
}

// SetLogger sets the logger for session events. Called by App after initialization.
func (sm *SessionManager) SetLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() session.Store {
	return sm.store
}

// CookieName returns the name of the session cookie.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Load returns the session referenced by the request cookie.
// Returns nil, nil if there is no cookie, or the session is unknown or expired.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := sm.cookies.Read(r, sm.cookieName)
	switch {
	case errors.Is(err, cookie.ErrNotFound):
		return nil, nil
	case errors.Is(err, cookie.ErrBadSignature):
		sm.logger.WarnContext(ctx, "session cookie signature mismatch")
		return nil, nil
	case err != nil:
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	sess, err := sm.store.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
		sm.logger.DebugContext(ctx, "discarding stale session cookie", slog.Any("reason", err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.ClearDirty()
	return sess, nil
}

// Create builds a new anonymous session for the request.
// The session is persisted on the first Save.
func (sm *SessionManager) Create(r *http.Request) (*session.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := session.New(uuid.NewString(), token, time.Now().Add(sm.ttl))
	sess.IP = remoteIP(r)
	sess.UserAgent = r.UserAgent()
	return sess, nil
}

// Save persists the session if it changed.
func (sm *SessionManager) Save(ctx context.Context, sess *session.Session) error {
	if !sess.IsDirty() {
		return nil
	}
	sess.LastActiveAt = time.Now()

	var err error
	if sess.IsNew() {
		err = sm.store.Create(ctx, sess)
	} else {
		err = sm.store.Update(ctx, sess)
	}
	if err != nil {
		return err
	}
	sess.ClearNew()
	sess.ClearDirty()
	return nil
}

// RotateToken issues a fresh token so a token observed before login cannot
// be replayed after it. The change is persisted by the next Save.
func (sm *SessionManager) RotateToken(sess *session.Session) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	sess.Token = token
	sess.MarkDirty()
	return nil
}

// Destroy deletes the session from the store.
func (sm *SessionManager) Destroy(ctx context.Context, sess *session.Session) error {
	if sess.IsNew() {
		return nil
	}
	return sm.store.Delete(ctx, sess.ID)
}

// WriteCookie writes the session cookie to the response.
func (sm *SessionManager) WriteCookie(w http.ResponseWriter, sess *session.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(sm.ttl.Seconds())
	}
	sm.cookies.Write(w, sm.cookieName, sess.Token, maxAge)
}

// ClearCookie expires the session cookie.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	sm.cookies.Clear(w, sm.cookieName)
}

// generateToken creates a cryptographically secure random token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// remoteIP returns the host part of r.RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
