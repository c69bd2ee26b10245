package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	secretA = []byte(strings.Repeat("a", jwtx.MinSecretSize))
	secretB = []byte(strings.Repeat("b", jwtx.MinSecretSize))
)

func TestHS256SignVerify(t *testing.T) {
	s, err := jwtx.NewHS256Signer(secretA, "admindash")
	require.NoError(t, err)

	before := time.Now().Truncate(time.Second)
	tok, err := s.Sign(jwtx.NewAccessClaims("user-1", "admin"), time.Minute)
	require.NoError(t, err)

	c, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.PrincipalID())
	require.Equal(t, jwtx.TypeAccess, c.Type)
	require.Equal(t, "admin", c.Role)
	require.Equal(t, "admindash", c.Issuer)
	require.False(t, c.Expiry().Before(before.Add(time.Minute)))
}

func TestHS256PresetIssuedAt(t *testing.T) {
	s, err := jwtx.NewHS256Signer(secretA, "admindash")
	require.NoError(t, err)

	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok, err := s.Sign(jwtx.NewRefreshClaims("user-1", "tid").IssuedAtTime(at), 2*time.Hour)
	require.NoError(t, err)

	c, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, at.Unix(), c.IssuedAt.Unix())
	require.Equal(t, at.Add(2*time.Hour).Unix(), c.Expiry().Unix())
}

func TestHS256RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256Signer([]byte("short"), "")
	require.Error(t, err)
}

func TestHS256VerifyFailures(t *testing.T) {
	signer, err := jwtx.NewHS256Signer(secretA, "admindash")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := jwtx.NewHS256Signer(secretB, "admindash")
		require.NoError(t, err)

		tok, err := other.Sign(jwtx.NewAccessClaims("u", "user"), time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		old, err := jwtx.NewHS256Signer(secretA, "admindash", jwtx.WithClock(func() time.Time { return past }))
		require.NoError(t, err)

		tok, err := old.Sign(jwtx.NewAccessClaims("u", "user"), time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("leeway tolerates skew", func(t *testing.T) {
		past := time.Now().Add(-90 * time.Second)
		old, err := jwtx.NewHS256Signer(secretA, "admindash", jwtx.WithClock(func() time.Time { return past }))
		require.NoError(t, err)
		tok, err := old.Sign(jwtx.NewAccessClaims("u", "user"), time.Minute)
		require.NoError(t, err)

		lenient, err := jwtx.NewHS256Signer(secretA, "admindash", jwtx.WithLeeway(time.Minute))
		require.NoError(t, err)
		_, err = lenient.Verify(tok)
		require.NoError(t, err)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		other, err := jwtx.NewHS256Signer(secretA, "someone-else")
		require.NoError(t, err)

		tok, err := other.Sign(jwtx.NewAccessClaims("u", "user"), time.Minute)
		require.NoError(t, err)

		_, err = signer.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := signer.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u", "admin")
		claims.Issuer = "admindash"
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = signer.Verify(tok)
		require.Error(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := jwtx.NewAccessClaims("u", "admin")
		claims.Issuer = "admindash"
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretA)
		require.NoError(t, err)

		_, err = signer.Verify(tok)
		require.Error(t, err)
	})
}
