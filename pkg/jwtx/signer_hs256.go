package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretSize is the shortest HMAC secret NewHS256Signer accepts.
const MinSecretSize = 32

// HS256Signer signs and verifies tokens with a shared HMAC-SHA256 secret.
type HS256Signer struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// SignerOption customises an HS256Signer.
type SignerOption func(*HS256Signer)

// WithLeeway tolerates clock skew when checking exp/nbf.
func WithLeeway(d time.Duration) SignerOption {
	return func(s *HS256Signer) { s.leeway = d }
}

// WithClock overrides time.Now, mostly for tests that need expired tokens.
func WithClock(now func() time.Time) SignerOption {
	return func(s *HS256Signer) { s.now = now }
}

// NewHS256Signer returns a signer bound to secret. An empty issuer disables
// the issuer check.
func NewHS256Signer(secret []byte, issuer string, opts ...SignerOption) (*HS256Signer, error) {
	if len(secret) < MinSecretSize {
		return nil, errors.New("jwtx: hmac secret too short")
	}

	s := &HS256Signer{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign implements TokenSigner.
func (s *HS256Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := s.now()
	if claims.IssuedAt != nil {
		now = claims.IssuedAt.Time
	}
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify implements TokenSigner.
func (s *HS256Signer) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}
