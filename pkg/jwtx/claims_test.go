package jwtx_test

import (
	"testing"

	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	c := jwtx.NewAccessClaims("user-1", "admin")

	require.Equal(t, jwtx.TypeAccess, c.Type)
	require.Equal(t, "user-1", c.PrincipalID())
	require.Equal(t, "admin", c.Role)
	require.Empty(t, c.TokenID)
	require.NotEmpty(t, c.ID)
}

func TestNewRefreshClaims(t *testing.T) {
	c := jwtx.NewRefreshClaims("user-1", "tid-1")

	require.Equal(t, jwtx.TypeRefresh, c.Type)
	require.Equal(t, "tid-1", c.TokenID)
	require.Empty(t, c.Role)
	require.True(t, c.Expiry().IsZero())
}

func TestNewJTIUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 1000 {
		j := jwtx.NewJTI()
		_, dup := seen[j]
		require.False(t, dup)
		seen[j] = struct{}{}
	}
}
