package transient_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

// clock is a manually advanced time source.
type clock struct {
	now atomic.Int64
}

func newClock() *clock {
	c := &clock{}
	c.now.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *clock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *clock) Advance(d time.Duration) { c.now.Add(int64(d)) }

// backend builds a store and a function that moves time forward for it.
type backend struct {
	name string
	open func(t *testing.T) (transient.Store, func(time.Duration))
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) (transient.Store, func(time.Duration)) {
				c := newClock()
				s := transient.NewMemory(transient.WithCleanupInterval(0), transient.WithClock(c.Now))
				t.Cleanup(func() { _ = s.Close() })
				return s, c.Advance
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) (transient.Store, func(time.Duration)) {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return transient.NewRedis(client, "test"), mr.FastForward
			},
		},
	}
}

func TestStore(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			t.Run("get missing key", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)

				_, err := s.Get(context.Background(), "missing")
				require.ErrorIs(t, err, transient.ErrNotFound)
			})

			t.Run("set and get", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
				v, err := s.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "v", v)
			})

			t.Run("entry expires after ttl", func(t *testing.T) {
				t.Parallel()
				s, advance := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
				advance(2 * time.Minute)

				_, err := s.Get(ctx, "k")
				require.ErrorIs(t, err, transient.ErrNotFound)
			})

			t.Run("zero ttl persists", func(t *testing.T) {
				t.Parallel()
				s, advance := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "k", "v", 0))
				advance(1000 * time.Hour)

				v, err := s.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "v", v)
			})

			t.Run("take is single use", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "token", "payload", time.Minute))

				v, err := s.Take(ctx, "token")
				require.NoError(t, err)
				require.Equal(t, "payload", v)

				_, err = s.Take(ctx, "token")
				require.ErrorIs(t, err, transient.ErrNotFound)
			})

			t.Run("delete", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "k", "v", 0))
				require.NoError(t, s.Delete(ctx, "k"))
				require.NoError(t, s.Delete(ctx, "k"))

				_, err := s.Get(ctx, "k")
				require.ErrorIs(t, err, transient.ErrNotFound)
			})

			t.Run("increment creates at one and persists", func(t *testing.T) {
				t.Parallel()
				s, advance := b.open(t)
				ctx := context.Background()

				n, err := transient.Counter(ctx, s, "authenticate-alice")
				require.NoError(t, err)
				require.Zero(t, n)

				for want := int64(1); want <= 3; want++ {
					n, err = s.Increment(ctx, "authenticate-alice")
					require.NoError(t, err)
					require.Equal(t, want, n)
				}

				advance(1000 * time.Hour)

				n, err = transient.Counter(ctx, s, "authenticate-alice")
				require.NoError(t, err)
				require.Equal(t, int64(3), n)
			})

			t.Run("increment rejects non counters", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)
				ctx := context.Background()

				require.NoError(t, s.Set(ctx, "k", "not a number", 0))

				_, err := s.Increment(ctx, "k")
				require.ErrorIs(t, err, transient.ErrNotCounter)

				_, err = transient.Counter(ctx, s, "k")
				require.ErrorIs(t, err, transient.ErrNotCounter)
			})

			t.Run("concurrent increments", func(t *testing.T) {
				t.Parallel()
				s, _ := b.open(t)
				ctx := context.Background()

				var wg sync.WaitGroup
				for range 20 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.Increment(ctx, "hits")
						require.NoError(t, err)
					}()
				}
				wg.Wait()

				n, err := transient.Counter(ctx, s, "hits")
				require.NoError(t, err)
				require.Equal(t, int64(20), n)
			})
		})
	}
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()

	s := transient.NewMemory()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Set(context.Background(), "k", "v", 0), transient.ErrClosed)
	_, err := s.Increment(context.Background(), "k")
	require.ErrorIs(t, err, transient.ErrClosed)
}

func TestMemory_Len(t *testing.T) {
	t.Parallel()

	c := newClock()
	s := transient.NewMemory(transient.WithCleanupInterval(0), transient.WithClock(c.Now))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", "1", time.Second))
	require.NoError(t, s.Set(ctx, "b", "2", 0))
	require.Equal(t, 2, s.Len())

	c.Advance(time.Minute)
	require.Equal(t, 1, s.Len())
}
