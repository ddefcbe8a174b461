package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

func TestThrottle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fourth attempt is rejected before credential lookup", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		auth.Throttle(f.hooks, 3)

		for range 3 {
			res, err := f.gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
			require.NoError(t, err)
			require.Equal(t, http.StatusUnauthorized, res.Status)
			require.ErrorIs(t, res.Err, auth.ErrInvalidCredentials)
		}
		require.Equal(t, 3, f.provider.Calls())

		n, err := transient.Counter(ctx, f.tokens, "authenticate-alice")
		require.NoError(t, err)
		require.Equal(t, int64(3), n)

		sess := newSession()
		res, err := f.gate.Authenticate(ctx, sess, "alice", "Secr3t!pass", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, res.Status)
		require.Equal(t, auth.MessageFailed, res.Message, "throttling is indistinguishable from bad credentials")
		require.ErrorIs(t, res.Err, auth.ErrThrottled)
		require.Equal(t, 3, f.provider.Calls(), "provider must not be called")
		require.False(t, f.gate.IsAuthenticated(sess))

		n, err = transient.Counter(ctx, f.tokens, "authenticate-alice")
		require.NoError(t, err)
		require.Equal(t, int64(3), n, "throttled attempts are not counted")
	})

	t.Run("counters are per identifier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		auth.Throttle(f.hooks, 1)

		_, err := f.gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
		require.NoError(t, err)

		res, err := f.gate.Authenticate(ctx, newSession(), "carol", "weak", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("counter persists without expiry", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tokens := transient.NewMemory(transient.WithCleanupInterval(0), transient.WithClock(func() time.Time { return now }))
		defer tokens.Close()

		f := newFixture(t)
		gate := auth.New(f.provider, tokens, auth.WithHooks(f.hooks), auth.WithVerifier(hasher))
		auth.Throttle(f.hooks, 2)

		for range 2 {
			_, err := gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
			require.NoError(t, err)
		}

		now = now.Add(365 * 24 * time.Hour)

		res, err := gate.Authenticate(ctx, newSession(), "alice", "Secr3t!pass", "")
		require.NoError(t, err)
		require.ErrorIs(t, res.Err, auth.ErrThrottled)
	})

	t.Run("reset on success", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		handles := auth.Throttle(f.hooks, 3, auth.ResetOnSuccess())
		require.Len(t, handles, 3)

		for range 2 {
			_, err := f.gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
			require.NoError(t, err)
		}

		res, err := f.gate.Authenticate(ctx, newSession(), "alice", "Secr3t!pass", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.Status)

		n, err := transient.Counter(ctx, f.tokens, "authenticate-alice")
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("removable by handle", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		handles := auth.Throttle(f.hooks, 1)
		require.Len(t, handles, 2)

		require.True(t, f.hooks.RemoveAction(auth.HookBeforeAuthenticate, handles[0], hook.DefaultPriority))

		_, err := f.gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
		require.NoError(t, err)

		res, err := f.gate.Authenticate(ctx, newSession(), "alice", "Secr3t!pass", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("non-positive limit disables it", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		require.Empty(t, auth.Throttle(f.hooks, 0))
		require.Empty(t, auth.Throttle(f.hooks, -1))
		require.False(t, f.hooks.HasAction(auth.HookBeforeAuthenticate))

		res, err := f.gate.Authenticate(ctx, newSession(), "alice", "Secr3t!pass", "")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("redis down")
		f := newFixture(t)
		gate := auth.New(f.provider, brokenStore{err: boom}, auth.WithHooks(f.hooks), auth.WithVerifier(hasher))
		auth.Throttle(f.hooks, 3)

		_, err := gate.Authenticate(ctx, newSession(), "alice", "wrong", "")
		require.ErrorIs(t, err, boom)
		require.Zero(t, f.provider.Calls())
	})
}

func TestInterceptor_Ordering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	// A custom interceptor ahead of the throttle blocks an IP range.
	f.hooks.AddAction(auth.HookBeforeAuthenticate, func(_ context.Context, args ...any) {
		a := args[0].(*auth.Attempt)
		if a.IP == "203.0.113.9" {
			a.Reject(errors.New("blocked address"))
		}
	}, hook.WithPriority(1))
	auth.Throttle(f.hooks, 5)

	res, err := f.gate.Authenticate(ctx, newSession(), "alice", "Secr3t!pass", "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.EqualError(t, res.Err, "blocked address")
	require.Zero(t, f.provider.Calls())

	n, err := transient.Counter(ctx, f.tokens, "authenticate-alice")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

// brokenStore fails every operation.
type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (string, error)  { return "", b.err }
func (b brokenStore) Take(context.Context, string) (string, error) { return "", b.err }
func (b brokenStore) Delete(context.Context, string) error         { return b.err }
func (b brokenStore) Increment(context.Context, string) (int64, error) {
	return 0, b.err
}
func (b brokenStore) Set(context.Context, string, string, time.Duration) error { return b.err }
