// Package transient provides short-lived key/value storage for one-time
// tokens and attempt counters.
//
// Two implementations share the [Store] interface: [Memory] for single-process
// deployments and tests, and [Redis] for anything that runs more than one
// instance.
//
// TTL semantics for Set:
//   - Positive duration: the entry expires after this duration
//   - Zero or negative: the entry persists until deleted
//
// Counters are plain decimal strings, so Increment and Get interoperate:
//
//	n, err := store.Increment(ctx, "authenticate-alice") // 1 on first call
//	v, err := transient.Counter(ctx, store, "authenticate-alice")
//
// Tokens are consumed with Take, which reads and deletes in one step so a
// token can be redeemed at most once:
//
//	_ = store.Set(ctx, id, payload, 15*time.Minute)
//	payload, err := store.Take(ctx, id)
package transient
