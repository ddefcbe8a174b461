package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("cookie: not found")
	ErrBadSignature = errors.New("cookie: invalid signature")
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// Manager writes cookies with shared attributes.
type Manager struct {
	secret   []byte
	domain   string
	path     string
	sameSite http.SameSite
	secure   bool
	httpOnly bool
}

// Option configures a Manager.
type Option func(*Manager)

// New creates a Manager. Defaults: path "/", HttpOnly, SameSite=Lax, unsigned.
func New(opts ...Option) *Manager {
	m := &Manager{path: "/", httpOnly: true, sameSite: http.SameSiteLaxMode}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithSecret enables signing. Secrets shorter than MinSecretLength are ignored.
func WithSecret(secret string) Option {
	return func(m *Manager) {
		if len(secret) >= MinSecretLength {
			m.secret = []byte(secret)
		}
	}
}

func WithDomain(domain string) Option {
	return func(m *Manager) { m.domain = domain }
}

func WithPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(m *Manager) { m.httpOnly = httpOnly }
}

func WithSameSite(ss http.SameSite) Option {
	return func(m *Manager) { m.sameSite = ss }
}

// Signed reports whether values are signed.
func (m *Manager) Signed() bool {
	return m.secret != nil
}

// Read returns the value of the named cookie, verifying its signature when
// signing is enabled.
func (m *Manager) Read(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && c.Value == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if m.secret == nil {
		return c.Value, nil
	}

	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return "", ErrBadSignature
	}
	value, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrBadSignature
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(got, m.sign(name, value)) {
		return "", ErrBadSignature
	}
	return string(value), nil
}

// Write sets the named cookie. maxAge follows http.Cookie semantics.
func (m *Manager) Write(w http.ResponseWriter, name, value string, maxAge int) {
	if m.secret != nil {
		value = base64.RawURLEncoding.EncodeToString([]byte(value)) + "." +
			base64.RawURLEncoding.EncodeToString(m.sign(name, []byte(value)))
	}
	http.SetCookie(w, m.cookie(name, value, maxAge))
}

// Clear expires the named cookie.
func (m *Manager) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.cookie(name, "", -1))
}

// sign binds the value to the cookie name so a value cannot be replayed under another name.
func (m *Manager) sign(name string, value []byte) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write(value)
	return mac.Sum(nil)
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	}
}
