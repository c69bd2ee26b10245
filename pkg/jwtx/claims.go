package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes for the token pair.
const (
	// DefaultAccessTokenTTL bounds how long a leaked bearer credential is useful.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is how long a session survives without a login.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens. Both are
// signed JWTs, so the type claim is what stops one being used as the other.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims is the payload of both token kinds.
//
//	access:  sub=principal, role, typ=access
//	refresh: sub=principal, tid=registry id, typ=refresh
type Claims struct {
	jwt.RegisteredClaims

	Type TokenType `json:"typ"`

	// Role of the principal, only set on access tokens.
	Role string `json:"role,omitempty"`

	// TokenID is the refresh registry key, only set on refresh tokens.
	TokenID string `json:"tid,omitempty"`
}

// NewAccessClaims builds the claims for an access token.
func NewAccessClaims(principalID, role string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: principalID, ID: NewJTI()},
		Type:             TypeAccess,
		Role:             role,
	}
}

// NewRefreshClaims builds the claims for a refresh token.
func NewRefreshClaims(principalID, tokenID string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: principalID, ID: NewJTI()},
		Type:             TypeRefresh,
		TokenID:          tokenID,
	}
}

// IssuedAtTime pins the issue time. Sign then derives nbf and exp from t
// instead of the signer's clock.
func (c Claims) IssuedAtTime(t time.Time) Claims {
	c.IssuedAt = jwt.NewNumericDate(t)
	return c
}

// PrincipalID returns the subject claim.
func (c Claims) PrincipalID() string { return c.Subject }

// Expiry returns the exp claim, or the zero time if unset.
func (c Claims) Expiry() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// NewJTI returns a URL-safe random identifier for the "jti" claim, so two
// tokens minted in the same second never collide.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
