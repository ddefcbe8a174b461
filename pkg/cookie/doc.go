// Package cookie reads and writes the session cookie.
//
// A Manager carries the cookie attributes (path, domain, Secure, HttpOnly,
// SameSite). With a secret configured every value is signed with
// HMAC-SHA256 and Read rejects values whose signature does not verify, so a
// client cannot forge a session token it was never issued.
package cookie
