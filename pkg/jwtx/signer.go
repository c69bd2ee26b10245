package jwtx

import "time"

// TokenSigner mints and checks one kind of token. The access and refresh
// tokens each get their own instance with a distinct secret and lifetime.
type TokenSigner interface {
	// Sign stamps iat/nbf/exp (now + ttl) and the issuer, then signs. A
	// preset iat replaces now.
	Sign(claims Claims, ttl time.Duration) (string, error)

	// Verify checks signature, issuer and expiry and returns the claims.
	Verify(token string) (Claims, error)
}
