package authsdk_test

import (
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/admindash/internal/auth/http"
	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/admindash/pkg/authsdk"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "admindash-sdk-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// newBackend serves the real router over a seeded in-memory store.
func newBackend(t *testing.T) (*httptest.Server, *service.AuthService) {
	t.Helper()

	st := memory.NewStore()
	_, err := (&service.SeedService{Store: st}).SeedIfEmpty(t.Context())
	require.NoError(t, err)

	access, err := jwtx.NewHS256Signer([]byte(strings.Repeat("k", 32)), "sdk-test")
	require.NoError(t, err)
	refresh, err := jwtx.NewHS256Signer([]byte(strings.Repeat("r", 32)), "sdk-test")
	require.NoError(t, err)

	auth := &service.AuthService{Store: st, AccessSigner: access, RefreshSigner: refresh}
	r := httpapi.NewRouter("test", st, slogx.Discard())
	r.AuthService = auth
	r.UserService = service.NewUserService(st)
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, auth
}

func TestSDKAgainstServer(t *testing.T) {
	srv, _ := newBackend(t)
	ctx := t.Context()

	client := authsdk.NewClient(srv.URL)
	session := authsdk.NewSession(client, authsdk.SessionOptions{})
	api := authsdk.NewGateway(client, session)

	t.Run("bad password", func(t *testing.T) {
		_, err := session.Login(ctx, service.SeedAdminEmail, "nope")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
		assert.Equal(t, authsdk.Unauthenticated, session.State())
	})

	t.Run("validation failure has details", func(t *testing.T) {
		_, err := session.Login(ctx, "not-an-email", "")
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.NotEmpty(t, apiErr.Details)
	})

	user, err := session.Login(ctx, service.SeedAdminEmail, service.SeedAdminPassword)
	require.NoError(t, err)
	require.Equal(t, authsdk.RoleAdmin, user.Role)

	require.NoError(t, api.Validate(ctx))

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	users, err := api.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(service.DefaultSeed))

	created, err := api.CreateUser(ctx, authsdk.CreateUserRequest{Name: "Park Jisoo", Email: "park@example.com", Role: authsdk.RoleUser})
	require.NoError(t, err)

	_, err = api.CreateUser(ctx, authsdk.CreateUserRequest{Name: "Dup", Email: "park@example.com", Role: authsdk.RoleUser})
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	name := "Park J."
	updated, err := api.UpdateUser(ctx, created.ID, authsdk.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, created.Email, updated.Email)

	deleted, err := api.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = api.GetUser(ctx, created.ID)
	assert.True(t, authsdk.IsNotFound(err))

	// Rotation through the session spends the old refresh token.
	_, err = session.ForceRefresh(ctx)
	require.NoError(t, err)

	session.Logout(ctx)
	assert.Equal(t, authsdk.Unauthenticated, session.State())

	_, err = api.ListUsers(ctx)
	require.ErrorIs(t, err, authsdk.ErrUnauthenticated)
}

func TestSDKRefreshTokenSingleUse(t *testing.T) {
	srv, _ := newBackend(t)
	ctx := t.Context()
	client := authsdk.NewClient(srv.URL)

	login, err := client.Login(ctx, service.SeedAdminEmail, service.SeedAdminPassword)
	require.NoError(t, err)

	_, err = client.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = client.Refresh(ctx, login.Tokens.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRevokedToken)

	require.NoError(t, client.Logout(ctx, "garbage"), "logout never fails")
}

func TestSDKConcurrentSessionsShareOneRefresh(t *testing.T) {
	srv, _ := newBackend(t)
	ctx := t.Context()

	client := authsdk.NewClient(srv.URL)
	session := authsdk.NewSession(client, authsdk.SessionOptions{})
	_, err := session.Login(ctx, service.SeedAdminEmail, service.SeedAdminPassword)
	require.NoError(t, err)

	// Forced refreshes that overlap collapse into one rotation, so none of
	// them trips over a spent refresh token.
	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = session.ForceRefresh(ctx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.False(t, errors.Is(err, authsdk.ErrRevokedToken), "unexpected %v", err)
		}
	}
	assert.Equal(t, authsdk.Authenticated, session.State())
	assert.True(t, session.IsAuthenticated())
}
