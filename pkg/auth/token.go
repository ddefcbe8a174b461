package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

// TokenKeyPrefix prefixes request token keys in the transient store.
const TokenKeyPrefix = "token-"

// tokenIDBytes gives a 22 character URL-safe token id.
const tokenIDBytes = 16

// TokenContext binds a request token to the form it was issued for.
type TokenContext struct {
	Action string
	URL    string
	IP     string
}

// tokenPayload is stored under the token id. Anonymous callers get a token
// bound to the form; authenticated callers get one bound to their identity.
type tokenPayload struct {
	Action string `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
	IP     string `json:"ip,omitempty"`
	User   string `json:"user,omitempty"`
}

// IssueToken stores a one-time request token and returns its id.
func (g *Gate) IssueToken(ctx context.Context, sess Session, tc TokenContext) (string, error) {
	payload := tokenPayload{Action: tc.Action, URL: tc.URL, IP: tc.IP}
	if user, ok := g.User(sess); ok {
		payload = tokenPayload{User: user}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	id, err := newTokenID()
	if err != nil {
		return "", err
	}

	if err := g.tokens.Set(ctx, TokenKeyPrefix+id, string(data), g.tokenTTL); err != nil {
		return "", err
	}
	return id, nil
}

// VerifyToken redeems the token id and reports whether it was issued for tc
// (or, for an authenticated caller, for the same identity).
// A token is consumed by the first verification, successful or not.
func (g *Gate) VerifyToken(ctx context.Context, sess Session, id string, tc TokenContext) (bool, error) {
	if id == "" {
		return false, nil
	}

	data, err := g.tokens.Take(ctx, TokenKeyPrefix+id)
	if errors.Is(err, transient.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var p tokenPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		g.logger.WarnContext(ctx, "discarding malformed request token")
		return false, nil
	}

	if user, ok := g.User(sess); ok {
		return p.User != "" && equal(p.User, user), nil
	}
	return p.User == "" &&
		equal(p.Action, tc.Action) &&
		equal(p.URL, tc.URL) &&
		equal(p.IP, tc.IP), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func newTokenID() (string, error) {
	b := make([]byte, tokenIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
