package auth

// Hook points fired by the gate.
//
// Actions receive the *Attempt as their first argument. FilterResponse
// receives the Result and the *Attempt. FilterStrongPassword receives a
// Checker (nil when no policy is enabled) and the *Attempt.
const (
	HookBeforeAuthenticate = "auth.before_authenticate"
	HookFailed             = "auth.failed"
	HookSucceeded          = "auth.succeeded"
	HookLogout             = "auth.logout"

	FilterStrongPassword = "auth.strong_password"
	FilterResponse       = "auth.response"
)
