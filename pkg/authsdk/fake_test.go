package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	fakeEmail    = "admin@example.com"
	fakePassword = "password123"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAPI is a scripted stand-in for the admin API. Tokens are opaque
// counters; refresh tokens are single use like the real server.
type fakeAPI struct {
	t     *testing.T
	clock *testClock
	srv   *httptest.Server
	mux   *http.ServeMux

	accessTTL  time.Duration
	refreshTTL time.Duration

	mu      sync.Mutex
	seq     int
	access  map[string]time.Time // token -> expiry
	refresh map[string]time.Time

	// rejectBearer makes every authenticated route answer 401.
	rejectBearer atomic.Bool
	// refreshGate, when set, blocks refresh handling until closed.
	refreshGate    chan struct{}
	refreshEntered chan struct{}

	loginCalls   atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
	userCalls    atomic.Int32
}

func newFakeAPI(t *testing.T, clock *testClock) *fakeAPI {
	t.Helper()

	f := &fakeAPI{
		t:          t,
		clock:      clock,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		access:     make(map[string]time.Time),
		refresh:    make(map[string]time.Time),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", f.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", f.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/logout", f.handleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", f.authed(f.handleMe))
	mux.HandleFunc("GET /api/v1/user", f.authed(f.handleUsers))

	f.mux = mux
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) URL() string { return f.srv.URL }

func (f *fakeAPI) issue() Tokens {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	now := f.clock.Now()
	t := Tokens{
		AccessToken:           fmt.Sprintf("access-%d", f.seq),
		RefreshToken:          fmt.Sprintf("refresh-%d", f.seq),
		AccessTokenExpiresAt:  now.Add(f.accessTTL).UnixMilli(),
		RefreshTokenExpiresAt: now.Add(f.refreshTTL).UnixMilli(),
	}
	f.access[t.AccessToken] = t.AccessExpiry()
	f.refresh[t.RefreshToken] = t.RefreshExpiry()
	return t
}

// revokeAccess makes the server reject token from now on.
func (f *fakeAPI) revokeAccess(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.access, token)
}

func (f *fakeAPI) liveRefreshTokens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refresh)
}

func (f *fakeAPI) adminUser() User {
	return User{ID: "01HZX0000000000000000000AD", Email: fakeEmail, Name: "Admin", Role: RoleAdmin}
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.loginCalls.Add(1)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFake(w, http.StatusBadRequest, ErrorResponse{Error: "request body must be valid JSON"})
		return
	}
	if req.Email != fakeEmail || req.Password != fakePassword {
		writeFake(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid email or password", Code: CodeInvalidCredentials})
		return
	}
	writeFake(w, http.StatusOK, LoginResponse{Success: true, Tokens: f.issue(), User: f.adminUser()})
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshEntered != nil {
		close(f.refreshEntered)
	}
	if f.refreshGate != nil {
		<-f.refreshGate
	}

	var req RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	exp, ok := f.refresh[req.RefreshToken]
	delete(f.refresh, req.RefreshToken)
	f.mu.Unlock()

	switch {
	case !ok:
		writeFake(w, http.StatusUnauthorized, ErrorResponse{Error: "refresh token revoked", Code: CodeRevokedToken})
	case !f.clock.Now().Before(exp):
		writeFake(w, http.StatusUnauthorized, ErrorResponse{Error: "refresh token expired", Code: CodeExpiredToken})
	default:
		writeFake(w, http.StatusOK, RefreshResponse{Success: true, Tokens: f.issue()})
	}
}

func (f *fakeAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.logoutCalls.Add(1)

	var req LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	delete(f.refresh, req.RefreshToken)
	f.mu.Unlock()

	writeFake(w, http.StatusOK, SuccessResponse{Success: true})
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.mu.Lock()
		exp, ok := f.access[token]
		f.mu.Unlock()

		if f.rejectBearer.Load() || !ok || !f.clock.Now().Before(exp) {
			if strings.HasSuffix(r.URL.Path, "/user") {
				f.userCalls.Add(1)
			}
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeFake(w, http.StatusUnauthorized, ErrorResponse{Error: "token verification failed", Code: CodeInvalidToken})
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeFake(w, http.StatusOK, MeResponse{Success: true, User: f.adminUser()})
}

func (f *fakeAPI) handleUsers(w http.ResponseWriter, _ *http.Request) {
	f.userCalls.Add(1)
	writeFake(w, http.StatusOK, UserListResponse{Success: true, Data: []User{f.adminUser()}})
}

func writeFake(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestSession wires a session to f with a shared clock and store.
func newTestSession(t *testing.T, f *fakeAPI, store CredentialStore) (*Session, *Gateway) {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	client := NewClient(f.URL())
	s := NewSession(client, SessionOptions{
		Store:          store,
		Now:            f.clock.Now,
		RefreshTimeout: 5 * time.Second,
	})
	return s, NewGateway(client, s)
}
