package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/pkg/cookie"
)

const secret = "this-is-a-32-byte-or-longer-key!"

// roundTrip writes with m and returns a request carrying the resulting cookies.
func roundTrip(write func(w http.ResponseWriter)) *http.Request {
	rec := httptest.NewRecorder()
	write(rec)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_Plain(t *testing.T) {
	t.Parallel()

	m := cookie.New(cookie.WithDomain("example.com"), cookie.WithSecure(true))
	require.False(t, m.Signed())

	rec := httptest.NewRecorder()
	m.Write(rec, "__sid", "token-1", 3600)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "token-1", cookies[0].Value)
	require.Equal(t, "/", cookies[0].Path)
	require.Equal(t, "example.com", cookies[0].Domain)
	require.True(t, cookies[0].Secure)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := roundTrip(func(w http.ResponseWriter) { m.Write(w, "__sid", "token-1", 3600) })
	v, err := m.Read(req, "__sid")
	require.NoError(t, err)
	require.Equal(t, "token-1", v)

	_, err = m.Read(httptest.NewRequest(http.MethodGet, "/", nil), "__sid")
	require.ErrorIs(t, err, cookie.ErrNotFound)
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	m := cookie.New(cookie.WithSecret(secret))
	require.True(t, m.Signed())

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		req := roundTrip(func(w http.ResponseWriter) { m.Write(w, "__sid", "token-1", 0) })
		v, err := m.Read(req, "__sid")
		require.NoError(t, err)
		require.Equal(t, "token-1", v)
	})

	t.Run("tampered value", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		m.Write(rec, "__sid", "token-1", 0)
		raw := rec.Result().Cookies()[0].Value
		payload, sig, _ := strings.Cut(raw, ".")
		require.NotEmpty(t, payload)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "__sid", Value: "dG9rZW4tMg." + sig})
		_, err := m.Read(req, "__sid")
		require.ErrorIs(t, err, cookie.ErrBadSignature)
	})

	t.Run("unsigned value", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "__sid", Value: "token-1"})
		_, err := m.Read(req, "__sid")
		require.ErrorIs(t, err, cookie.ErrBadSignature)
	})

	t.Run("signature bound to name", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		m.Write(rec, "a", "token-1", 0)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "b", Value: rec.Result().Cookies()[0].Value})
		_, err := m.Read(req, "b")
		require.ErrorIs(t, err, cookie.ErrBadSignature)
	})

	t.Run("short secret disables signing", func(t *testing.T) {
		t.Parallel()
		require.False(t, cookie.New(cookie.WithSecret("short")).Signed())
	})
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	cookie.New().Clear(rec, "__sid")
	c := rec.Result().Cookies()[0]
	require.Equal(t, "__sid", c.Name)
	require.Negative(t, c.MaxAge)
}
