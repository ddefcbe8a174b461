// Package auth implements the session authentication gate.
//
// A [Gate] runs login attempts as a small state machine:
//
//	Start -> RequestVerified -> CredentialsChecked -> SessionRegistered -> Established | SecretPending
//	any step -> Rejected
//
// [Gate.Login] first redeems a one-time request token issued by
// [Gate.IssueToken]; [Gate.Authenticate] skips that step. Credentials come from
// a [credential.Provider] and are checked with a [Verifier]. All session state
// lives in the request-bound [Session]; the gate only reads and writes it.
//
// Every rejection, whatever the reason, produces the same 401 result with the
// message "authentication failed". The reason is available to hooks through
// [Attempt.Reason] and to the caller through [Result.Err] for logging.
//
// Cross-cutting behavior is attached through hooks on the gate's registry:
//
//	reg := hook.New()
//	auth.Throttle(reg, 3, auth.ResetOnSuccess())
//	auth.PasswordPolicy(reg, password.DefaultStrength)
//
//	gate := auth.New(provider, tokens, auth.WithHooks(reg))
//
// Throttle counts failures per identifier in the transient store under
// "authenticate-{identifier}" with no expiry, and rejects further attempts
// before any credential lookup once the limit is reached.
package auth
