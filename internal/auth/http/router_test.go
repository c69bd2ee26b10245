package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/admindash/pkg/authsdk"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userEmail    = "member@example.com"
	userPassword = "member-password"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "admindash-http-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := memory.NewStore()
	seed := append([]service.SeedUser{}, service.DefaultSeed...)
	seed = append(seed, service.SeedUser{Name: "Member", Email: userEmail, Role: domain.RoleUser, Password: userPassword})
	_, err := (&service.SeedService{Store: st, Users: seed}).SeedIfEmpty(t.Context())
	require.NoError(t, err)

	access, err := jwtx.NewHS256Signer([]byte(strings.Repeat("a", 32)), "test")
	require.NoError(t, err)
	refresh, err := jwtx.NewHS256Signer([]byte(strings.Repeat("b", 32)), "test")
	require.NoError(t, err)

	r := NewRouter("test", st, slogx.Discard())
	r.AuthService = &service.AuthService{Store: st, AccessSigner: access, RefreshSigner: refresh}
	r.UserService = service.NewUserService(st)
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func login(t *testing.T, srv *httptest.Server, email, password string) authsdk.LoginResponse {
	t.Helper()
	var res authsdk.LoginResponse
	status := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", authsdk.LoginRequest{Email: email, Password: password}, &res)
	require.Equal(t, http.StatusOK, status)
	return res
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)

	t.Run("admin", func(t *testing.T) {
		res := login(t, srv, service.SeedAdminEmail, service.SeedAdminPassword)
		assert.True(t, res.Success)
		assert.Equal(t, "admin", res.User.Role)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.NotEmpty(t, res.Tokens.RefreshToken)
		assert.Less(t, res.Tokens.AccessTokenExpiresAt, res.Tokens.RefreshTokenExpiresAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		var res authsdk.ErrorResponse
		status := call(t, srv, http.MethodPost, "/api/v1/auth/login", "",
			authsdk.LoginRequest{Email: service.SeedAdminEmail, Password: "nope"}, &res)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		var res authsdk.ErrorResponse
		status := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", authsdk.LoginRequest{}, &res)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, res.Details, "email")
		assert.Contains(t, res.Details, "password")
	})
}

func TestValidateAndMe(t *testing.T) {
	srv := newTestServer(t)
	res := login(t, srv, service.SeedAdminEmail, service.SeedAdminPassword)

	var ok authsdk.SuccessResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/validate", res.Tokens.AccessToken, nil, &ok))
	assert.True(t, ok.Success)

	var fail authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/validate", "", nil, &fail))
	assert.False(t, fail.Success)

	// A refresh token is signed with another key.
	require.Equal(t, http.StatusUnauthorized,
		call(t, srv, http.MethodPost, "/api/v1/auth/validate", res.Tokens.RefreshToken, nil, nil))

	var me authsdk.MeResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/auth/me", res.Tokens.AccessToken, nil, &me))
	assert.Equal(t, service.SeedAdminEmail, me.User.Email)
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	srv := newTestServer(t)
	res := login(t, srv, service.SeedAdminEmail, service.SeedAdminPassword)

	var rotated authsdk.RefreshResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/refresh", "",
		authsdk.RefreshRequest{RefreshToken: res.Tokens.RefreshToken}, &rotated))
	assert.True(t, rotated.Success)
	assert.NotEqual(t, res.Tokens.RefreshToken, rotated.Tokens.RefreshToken)

	var replay authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/refresh", "",
		authsdk.RefreshRequest{RefreshToken: res.Tokens.RefreshToken}, &replay))
	assert.False(t, replay.Success)
	assert.Equal(t, authsdk.CodeRevokedToken, replay.Code)

	var out authsdk.SuccessResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/logout", "",
		authsdk.LogoutRequest{RefreshToken: rotated.Tokens.RefreshToken}, &out))
	assert.True(t, out.Success)

	// Already gone, malformed or absent: still success.
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/logout", "",
		authsdk.LogoutRequest{RefreshToken: rotated.Tokens.RefreshToken}, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/logout", "",
		authsdk.LogoutRequest{RefreshToken: "garbage"}, nil))
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/v1/auth/logout", "", nil, nil))

	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/refresh", "",
		authsdk.RefreshRequest{RefreshToken: rotated.Tokens.RefreshToken}, nil))
}

func TestUnauthorizedErrorCodes(t *testing.T) {
	srv := newTestServer(t)

	var garbage authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/refresh", "",
		authsdk.RefreshRequest{RefreshToken: "garbage"}, &garbage))
	assert.Equal(t, authsdk.CodeInvalidToken, garbage.Code)

	var badLogin authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/login", "",
		authsdk.LoginRequest{Email: service.SeedAdminEmail, Password: "wrong"}, &badLogin))
	assert.Equal(t, authsdk.CodeInvalidCredentials, badLogin.Code)

	signer, err := jwtx.NewHS256Signer([]byte(strings.Repeat("a", 32)), "test")
	require.NoError(t, err)
	stale, err := signer.Sign(jwtx.NewAccessClaims("someone", "admin").IssuedAtTime(time.Now().Add(-time.Hour)), time.Minute)
	require.NoError(t, err)

	var expired authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/v1/auth/validate", stale, nil, &expired))
	assert.Equal(t, authsdk.CodeExpiredToken, expired.Code)

	var missing authsdk.ErrorResponse
	require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/v1/user", "", nil, &missing))
	assert.Equal(t, authsdk.CodeInvalidToken, missing.Code)
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, service.SeedAdminEmail, service.SeedAdminPassword).Tokens.AccessToken
	member := login(t, srv, userEmail, userPassword).Tokens.AccessToken

	t.Run("list requires authentication", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/v1/user", "", nil, nil))

		var list authsdk.UserListResponse
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/user", member, nil, &list))
		assert.True(t, list.Success)
		assert.Len(t, list.Data, len(service.DefaultSeed)+1)
	})

	t.Run("mutations require admin", func(t *testing.T) {
		req := authsdk.CreateUserRequest{Name: gofakeit.Name(), Email: gofakeit.Email(), Role: "user"}
		require.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, "/api/v1/user", member, req, nil))
	})

	var created authsdk.UserResponse
	req := authsdk.CreateUserRequest{Name: gofakeit.Name(), Email: gofakeit.Email(), Role: "user"}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/v1/user", admin, req, &created))
	require.True(t, created.Success)
	id := created.Data.ID

	t.Run("duplicate email", func(t *testing.T) {
		var res authsdk.ErrorResponse
		dup := authsdk.CreateUserRequest{Name: "Dup", Email: strings.ToUpper(req.Email), Role: "admin"}
		require.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/user", admin, dup, &res))
		assert.False(t, res.Success)
	})

	t.Run("validation details", func(t *testing.T) {
		var res authsdk.ErrorResponse
		bad := authsdk.CreateUserRequest{Name: "", Email: "nope", Role: "root"}
		require.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/api/v1/user", admin, bad, &res))
		assert.Len(t, res.Details, 3)
	})

	t.Run("get", func(t *testing.T) {
		var got authsdk.UserResponse
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/v1/user/"+id, member, nil, &got))
		assert.Equal(t, created.Data.Email, got.Data.Email)
		require.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/api/v1/user/missing", member, nil, nil))
	})

	t.Run("update", func(t *testing.T) {
		name := "Renamed"
		var got authsdk.UserResponse
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodPut, "/api/v1/user/"+id, admin,
			authsdk.UpdateUserRequest{Name: &name}, &got))
		assert.Equal(t, "Renamed", got.Data.Name)
		assert.Equal(t, created.Data.Email, got.Data.Email)

		require.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPut, "/api/v1/user/missing", admin,
			authsdk.UpdateUserRequest{Name: &name}, nil))
	})

	t.Run("delete", func(t *testing.T) {
		var got authsdk.UserResponse
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodDelete, "/api/v1/user/"+id, admin, nil, &got))
		assert.Equal(t, id, got.Data.ID)
		require.Equal(t, http.StatusNotFound, call(t, srv, http.MethodDelete, "/api/v1/user/"+id, admin, nil, nil))
	})
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	var api authsdk.APIHealthResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/health", "", nil, &api))
	assert.True(t, api.Success)
	assert.False(t, api.Timestamp.IsZero())

	var live authsdk.HealthResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/livez", "", nil, &live))
	assert.Equal(t, "ok", live.Status)

	var ready authsdk.HealthResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/readyz", "", nil, &ready))
	require.NotNil(t, ready.Checks)
	assert.Equal(t, "ok", ready.Checks.Database)
}
