package service

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "admindash-service-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// testClock is a settable clock shared by the service and its signers.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store store.Store
	clock *testClock
	auth  *AuthService
	users *UserService
}

func newMemoryFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, memory.NewStore())
}

func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return newFixture(t, st)
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	clock := newTestClock()

	access, err := jwtx.NewHS256Signer([]byte(strings.Repeat("a", 32)), "admindash-test", jwtx.WithClock(clock.Now))
	require.NoError(t, err)
	refresh, err := jwtx.NewHS256Signer([]byte(strings.Repeat("r", 32)), "admindash-test", jwtx.WithClock(clock.Now))
	require.NoError(t, err)

	users := NewUserService(st)
	users.Now = clock.Now

	return &fixture{
		store: st,
		clock: clock,
		auth: &AuthService{
			Store:         st,
			AccessSigner:  access,
			RefreshSigner: refresh,
			AccessTTL:     jwtx.DefaultAccessTokenTTL,
			RefreshTTL:    jwtx.DefaultRefreshTokenTTL,
			Now:           clock.Now,
		},
		users: users,
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	seeded, err := (&SeedService{Store: f.store}).SeedIfEmpty(t.Context())
	require.NoError(t, err)
	require.True(t, seeded)
}
