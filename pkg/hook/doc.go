// Package hook provides ordered, priority-based callback chains: side-effecting
// actions and value-transforming filters.
//
// A [Registry] is an explicitly constructed value. There is no package-level
// registry; construct one per application (or per request via [Registry.Clone])
// and pass it to the components that fire or subscribe to hooks.
//
// # Ordering
//
// Callbacks registered under the same name run in ascending priority order.
// Callbacks with equal priority run in registration order. The default
// priority is 10.
//
// # Actions
//
//	reg := hook.New()
//	reg.AddAction("user.created", func(ctx context.Context, args ...any) {
//	    user := args[0].(*User)
//	    mailer.SendWelcome(ctx, user)
//	})
//	reg.DoAction(ctx, "user.created", user)
//
// A callback receives at most as many positional arguments as it declared with
// [WithArgs] (default 1). A panicking action is recovered and logged; the rest
// of the chain still runs.
//
// # Filters
//
// Filters pipe a value through every callback and return the final value.
// With no callbacks registered, [Registry.ApplyFilter] returns the input unchanged.
//
//	reg.AddFilter("title", func(ctx context.Context, v any, _ ...any) any {
//	    return strings.ToUpper(v.(string))
//	})
//	title := reg.ApplyFilter(ctx, "title", "hello") // "HELLO"
//
// The generic helpers [AddFilterFunc] and [Apply] keep the value typed:
//
//	hook.AddFilterFunc(reg, "enabled", func(ctx context.Context, v bool, _ ...any) bool {
//	    return true
//	})
//	enabled := hook.Apply(ctx, reg, "enabled", false)
//
// # Removal
//
// Registration returns a [Handle] that identifies the callback. Removal requires
// the exact name, handle and priority used at registration:
//
//	h := reg.AddAction("tick", fn, hook.WithPriority(5))
//	reg.RemoveAction("tick", h, 5) // true
//
// # Concurrency
//
// Registry methods are safe for concurrent use. Callbacks run on a snapshot of
// the chain taken when the hook fires, so a callback may register or remove
// hooks without deadlocking; such changes take effect on the next firing.
package hook
