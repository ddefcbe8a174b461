package auth

import "net/http"

// State is a step of one authentication attempt.
type State int

const (
	StateStart State = iota
	StateRequestVerified
	StateCredentialsChecked
	StateSessionRegistered
	StateSecretPending
	StateEstablished
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateRequestVerified:
		return "request_verified"
	case StateCredentialsChecked:
		return "credentials_checked"
	case StateSessionRegistered:
		return "session_registered"
	case StateSecretPending:
		return "secret_pending"
	case StateEstablished:
		return "established"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome messages.
const (
	MessageAuthenticated = "authenticated"
	MessagePending       = "verification required"
	MessageFailed        = "authentication failed"
	MessageWeakPassword  = "authenticated, but the password does not meet the strength policy"
)

// Result is the terminal outcome of an authentication attempt.
type Result struct {
	// Err is the rejection reason; never exposed to the caller.
	Err     error  `json:"-"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
	Status  int    `json:"status"`
	State   State  `json:"-"`
}

// OK reports whether the attempt established or is pending a second factor.
func (r Result) OK() bool {
	return r.Status == http.StatusOK || r.Status == http.StatusAccepted
}
