package hook

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

// Handle identifies a registered callback.
// Handles are unique within the Registry (and its clones) that issued them.
type Handle uint64

// ActionFunc is a side-effecting callback.
type ActionFunc func(ctx context.Context, args ...any)

// FilterFunc receives the current value and returns the value passed to the
// next callback in the chain.
type FilterFunc func(ctx context.Context, value any, args ...any) any

// entry is one registered callback.
type entry struct {
	action   ActionFunc
	filter   FilterFunc
	handle   Handle
	priority int
	argCount int
}

// args trims the fired arguments to what the callback accepts.
func (e *entry) args(args []any) []any {
	if e.argCount < 0 || len(args) <= e.argCount {
		return args
	}
	return args[:e.argCount]
}

// Registry maps hook names to ordered callback chains.
type Registry struct {
	actions map[string][]*entry
	filters map[string][]*entry
	logger  *slog.Logger
	next    *handleSeq
	mu      sync.RWMutex
}

// handleSeq is shared between a registry and its clones so handles never collide.
type handleSeq struct {
	mu sync.Mutex
	n  uint64
}

func (s *handleSeq) take() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return Handle(s.n)
}

// New creates an empty Registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		actions: make(map[string][]*entry),
		filters: make(map[string][]*entry),
		logger:  logger.NewNope(),
		next:    &handleSeq{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clone returns an independent copy of the registry.
// Callbacks registered on the clone are not visible to the original and vice versa.
// Use it to give each request its own registry seeded from an application-wide one.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Registry{
		actions: cloneChains(r.actions),
		filters: cloneChains(r.filters),
		logger:  r.logger,
		next:    r.next,
	}
}

// AddAction registers a side-effecting callback under name.
func (r *Registry) AddAction(name string, fn ActionFunc, opts ...Option) Handle {
	return r.add(r.actions, &entry{action: fn}, name, opts)
}

// AddFilter registers a value-transforming callback under name.
func (r *Registry) AddFilter(name string, fn FilterFunc, opts ...Option) Handle {
	return r.add(r.filters, &entry{filter: fn}, name, opts)
}

// DoAction runs every action registered under name in priority order.
// Panics raised by callbacks are recovered and logged.
func (r *Registry) DoAction(ctx context.Context, name string, args ...any) {
	for _, e := range r.snapshot(r.actions, name) {
		r.runAction(ctx, name, e, args)
	}
}

// ApplyFilter pipes value through every filter registered under name and
// returns the final value. Returns value unchanged if no filter is registered.
func (r *Registry) ApplyFilter(ctx context.Context, name string, value any, args ...any) any {
	for _, e := range r.snapshot(r.filters, name) {
		value = r.runFilter(ctx, name, e, value, args)
	}
	return value
}

// RemoveAction removes the action identified by name, handle and priority.
// Reports whether a callback was removed.
func (r *Registry) RemoveAction(name string, h Handle, priority int) bool {
	return r.remove(r.actions, name, h, priority)
}

// RemoveFilter removes the filter identified by name, handle and priority.
// Reports whether a callback was removed.
func (r *Registry) RemoveFilter(name string, h Handle, priority int) bool {
	return r.remove(r.filters, name, h, priority)
}

// HasAction reports whether any action is registered under name.
// If handles are given, reports whether any of them is registered under name.
func (r *Registry) HasAction(name string, handles ...Handle) bool {
	return r.has(r.actions, name, handles)
}

// HasFilter reports whether any filter is registered under name.
// If handles are given, reports whether any of them is registered under name.
func (r *Registry) HasFilter(name string, handles ...Handle) bool {
	return r.has(r.filters, name, handles)
}

func (r *Registry) add(chains map[string][]*entry, e *entry, name string, opts []Option) Handle {
	e.priority = DefaultPriority
	e.argCount = DefaultArgs
	for _, opt := range opts {
		opt(e)
	}
	e.handle = r.next.take()

	r.mu.Lock()
	defer r.mu.Unlock()

	chain := chains[name]
	// Insert after every entry with priority <= e.priority to keep registration order stable.
	i := slices.IndexFunc(chain, func(x *entry) bool { return x.priority > e.priority })
	if i < 0 {
		i = len(chain)
	}
	chains[name] = slices.Insert(slices.Clip(chain), i, e)

	return e.handle
}

func (r *Registry) remove(chains map[string][]*entry, name string, h Handle, priority int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := chains[name]
	i := slices.IndexFunc(chain, func(x *entry) bool { return x.handle == h && x.priority == priority })
	if i < 0 {
		return false
	}

	chain = slices.Delete(slices.Clone(chain), i, i+1)
	if len(chain) == 0 {
		delete(chains, name)
	} else {
		chains[name] = chain
	}
	return true
}

func (r *Registry) has(chains map[string][]*entry, name string, handles []Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := chains[name]
	if len(handles) == 0 {
		return len(chain) > 0
	}
	return slices.ContainsFunc(chain, func(x *entry) bool {
		return slices.Contains(handles, x.handle)
	})
}

// snapshot returns the chain for name as of now.
// Chains are never mutated in place, so the returned slice is safe to range over unlocked.
func (r *Registry) snapshot(chains map[string][]*entry, name string) []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return chains[name]
}

func (r *Registry) runAction(ctx context.Context, name string, e *entry, args []any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "hook action panicked",
				slog.String("hook", name),
				slog.Any("panic", rec),
			)
		}
	}()
	e.action(ctx, e.args(args)...)
}

func (r *Registry) runFilter(ctx context.Context, name string, e *entry, value any, args []any) (out any) {
	out = value
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "hook filter panicked",
				slog.String("hook", name),
				slog.Any("panic", rec),
			)
			out = value
		}
	}()
	return e.filter(ctx, value, e.args(args)...)
}

func cloneChains(src map[string][]*entry) map[string][]*entry {
	dst := make(map[string][]*entry, len(src))
	for name, chain := range src {
		dst[name] = slices.Clone(chain)
	}
	return dst
}
