package admind_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/admindash/pkg/authsdk"
)

func TestProbes(t *testing.T) {
	baseURL := setupContainer(t, nil)
	client := authsdk.NewClient(baseURL)

	health, err := client.Liveness(t.Context())
	assertHealthy(t, health, err)

	health, err = client.Readiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)

	api, err := client.Health(t.Context())
	require.NoError(t, err)
	require.True(t, api.Success)
	require.False(t, api.Timestamp.IsZero())
}
