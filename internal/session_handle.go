package internal

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/gatehouse/pkg/session"
)

// SessionHandle is the session bound to one request.
//
// It loads the stored session lazily, creates one on the first write and
// persists changes right before the response header is sent.
type SessionHandle struct {
	manager *SessionManager
	w       http.ResponseWriter
	r       *http.Request
	sess    *session.Session
	err     error
	userKey string
	mu      sync.Mutex
	loaded  bool
	cookie  bool
}

func newSessionHandle(sm *SessionManager, w http.ResponseWriter, r *http.Request, userKey string) *SessionHandle {
	return &SessionHandle{manager: sm, w: w, r: r, userKey: userKey}
}

// Session returns the underlying session, or nil if none exists yet.
func (h *SessionHandle) Session() (*session.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load()
	return h.sess, h.err
}

// IsSetted reports whether key holds a value.
func (h *SessionHandle) IsSetted(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.load(); h.sess == nil {
		return false
	}
	_, ok := h.sess.GetValue(key)
	return ok
}

func (h *SessionHandle) IsRegistered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load()
	return h.sess != nil && h.sess.Registered
}

// IsExpired reports true when there is no live session.
func (h *SessionHandle) IsExpired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load()
	return h.sess == nil || h.sess.IsExpired()
}

// Get returns the value under key, or nil.
func (h *SessionHandle) Get(key string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.load(); h.sess == nil {
		return nil
	}
	v, _ := h.sess.GetValue(key)
	return v
}

// Set stores value under key, starting a session if needed.
func (h *SessionHandle) Set(key string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ensure() {
		return
	}
	h.sess.SetValue(key, value)
	if key == h.userKey {
		h.sess.SetUser(fmt.Sprint(value))
	}
}

// Delete removes key from the session.
func (h *SessionHandle) Delete(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.load(); h.sess == nil {
		return
	}
	h.sess.DeleteValue(key)
	if key == h.userKey {
		h.sess.SetUser("")
	}
}

// Register marks the session registered for ttl, rotates its token and
// persists it. A store error leaves the request without a session.
func (h *SessionHandle) Register(ctx context.Context, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ensure() {
		return h.err
	}
	if err := h.manager.RotateToken(h.sess); err != nil {
		return err
	}
	h.sess.Register(ttl)
	if err := h.manager.Save(ctx, h.sess); err != nil {
		h.sess = nil
		h.cookie = false
		return fmt.Errorf("save registered session: %w", err)
	}
	h.cookie = true
	return nil
}

// Err returns the error from loading or creating the session, if any.
func (h *SessionHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load()
	return h.err
}

// End destroys the session and expires the cookie.
func (h *SessionHandle) End(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load()

	if h.sess != nil {
		if err := h.manager.Destroy(ctx, h.sess); err != nil {
			return err
		}
	}
	h.sess = nil
	h.cookie = false
	h.manager.ClearCookie(h.w)
	return nil
}

// Flush persists pending changes and writes the cookie if it changed.
// Must run before the response header is sent.
func (h *SessionHandle) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sess == nil {
		return nil
	}
	if err := h.manager.Save(ctx, h.sess); err != nil {
		return err
	}
	if h.cookie {
		h.manager.WriteCookie(h.w, h.sess)
		h.cookie = false
	}
	return nil
}

// load reads the stored session once per request.
func (h *SessionHandle) load() {
	if h.loaded {
		return
	}
	h.loaded = true
	h.sess, h.err = h.manager.Load(h.r.Context(), h.r)
}

// ensure makes sure a session exists, creating one if needed.
// Returns false if neither loading nor creating succeeded.
func (h *SessionHandle) ensure() bool {
	if h.load(); h.sess != nil {
		return true
	}
	if h.err != nil {
		return false
	}
	sess, err := h.manager.Create(h.r)
	if err != nil {
		h.err = err
		return false
	}
	h.sess = sess
	h.cookie = true
	return true
}
