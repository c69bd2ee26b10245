package authsdk

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayRetryOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("401 then refresh succeeds", func(t *testing.T) {
		f := newFakeAPI(t, newTestClock())
		s, api := newTestSession(t, f, nil)
		_, err := s.Login(ctx, fakeEmail, fakePassword)
		require.NoError(t, err)

		// Server-side the token is dead although it looks fresh locally.
		f.revokeAccess("access-1")

		users, err := api.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.EqualValues(t, 2, f.userCalls.Load(), "exactly one retried request")
		assert.EqualValues(t, 1, f.refreshCalls.Load())
		assert.Equal(t, Authenticated, s.State())
	})

	t.Run("401 after refresh is terminal", func(t *testing.T) {
		f := newFakeAPI(t, newTestClock())
		s, api := newTestSession(t, f, nil)
		_, err := s.Login(ctx, fakeEmail, fakePassword)
		require.NoError(t, err)

		f.rejectBearer.Store(true)

		_, err = api.ListUsers(ctx)
		require.ErrorIs(t, err, ErrUnauthenticated)
		assert.EqualValues(t, 2, f.userCalls.Load(), "no third attempt")
		assert.EqualValues(t, 1, f.refreshCalls.Load())
	})

	t.Run("refresh rejected clears the session", func(t *testing.T) {
		f := newFakeAPI(t, newTestClock())
		s, api := newTestSession(t, f, nil)
		_, err := s.Login(ctx, fakeEmail, fakePassword)
		require.NoError(t, err)

		f.revokeAccess("access-1")
		f.mu.Lock()
		clear(f.refresh)
		f.mu.Unlock()

		_, err = api.ListUsers(ctx)
		require.ErrorIs(t, err, ErrUnauthenticated)
		require.ErrorIs(t, err, ErrRevokedToken)
		assert.EqualValues(t, 1, f.userCalls.Load())
		assert.Equal(t, Unauthenticated, s.State())
	})
}

func TestGatewayExpiredAccessTokenTransparentRefresh(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	f := newFakeAPI(t, clock)
	s, api := newTestSession(t, f, nil)

	_, err := s.Login(ctx, fakeEmail, fakePassword)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)

	users, err := api.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 1, f.userCalls.Load(), "refreshed before sending")
}

func TestGatewayDoReplaysBody(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI(t, newTestClock())

	var bodies []string
	f.mux.HandleFunc("POST /api/v1/echo", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			writeFake(w, http.StatusUnauthorized, ErrorResponse{Error: "token verification failed", Code: CodeInvalidToken})
			return
		}
		writeFake(w, http.StatusOK, SuccessResponse{Success: true})
	})

	s, api := newTestSession(t, f, nil)
	_, err := s.Login(ctx, fakeEmail, fakePassword)
	require.NoError(t, err)

	resp, err := api.Do(ctx, http.MethodPost, "/api/v1/echo", []byte(`{"n":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"n":1}`, `{"n":1}`}, bodies)
}

func TestGatewayUnauthenticated(t *testing.T) {
	f := newFakeAPI(t, newTestClock())
	_, api := newTestSession(t, f, nil)

	_, err := api.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGatewayMeUpdatesProfile(t *testing.T) {
	ctx := context.Background()
	f := newFakeAPI(t, newTestClock())
	store := NewMemoryStore()
	s, api := newTestSession(t, f, store)
	_, err := s.Login(ctx, fakeEmail, fakePassword)
	require.NoError(t, err)

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, fakeEmail, me.Email)

	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, me.ID, user.ID)
}

func TestClassifyUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		code string
		msg  string
		want error
	}{
		{"expired", CodeExpiredToken, "refresh token expired", ErrExpiredToken},
		{"revoked", CodeRevokedToken, "refresh token revoked", ErrRevokedToken},
		{"invalid", CodeInvalidToken, "invalid refresh token", ErrInvalidToken},
		{"code wins over wording", CodeInvalidToken, "token expired or revoked", ErrInvalidToken},
		{"reworded message", CodeExpiredToken, "session lapsed", ErrExpiredToken},
		{"no code", "", "refresh token revoked", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyUnauthorized(&APIError{StatusCode: http.StatusUnauthorized, Code: tt.code, Message: tt.msg})
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
		})
	}

	other := &APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
	assert.Same(t, other, classifyUnauthorized(other))
}

func TestParseErrorResponse(t *testing.T) {
	apiErr := parseErrorResponse(http.StatusBadRequest,
		[]byte(`{"success":false,"error":"validation failed","details":{"email":"must be a valid email"}}`))
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, "must be a valid email", apiErr.Details["email"])
	assert.Equal(t, "authsdk: HTTP 400: validation failed", apiErr.Error())

	apiErr = parseErrorResponse(http.StatusUnauthorized,
		[]byte(`{"success":false,"error":"refresh token revoked","code":"revoked_token"}`))
	assert.Equal(t, CodeRevokedToken, apiErr.Code)

	apiErr = parseErrorResponse(http.StatusBadGateway, []byte("<html>"))
	assert.Equal(t, "Bad Gateway", apiErr.Message)

	assert.True(t, IsNotFound(parseErrorResponse(http.StatusNotFound, nil)))
}
