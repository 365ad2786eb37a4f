// Package auth implements the shared-secret identity guard.
package auth

import "crypto/subtle"

// HeaderName is the request header carrying the presented credential.
const HeaderName = "X-API-KEY"

// Guard checks a presented credential against a configured shared secret.
// A guard with an empty secret admits every request.
type Guard struct {
	secret string
}

// NewGuard creates a guard for the configured secret. An empty secret
// disables the check entirely.
func NewGuard(secret string) *Guard {
	return &Guard{secret: secret}
}

// Enabled reports whether a secret is configured.
func (g *Guard) Enabled() bool {
	return g.secret != ""
}

// Allow reports whether the presented credential is acceptable. The
// comparison is constant-time so the secret cannot be probed byte by
// byte through response timing.
func (g *Guard) Allow(presented string) bool {
	if g.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(g.secret)) == 1
}
