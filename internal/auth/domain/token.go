package domain

import "time"

// TokenPair is what login and refresh hand back to the client. Expiries
// are absolute instants fixed at issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshToken is a live entry in the refresh registry. The store keys it
// by a fingerprint of the token id embedded in the refresh JWT.
type RefreshToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
