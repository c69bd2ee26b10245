package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/admindash/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		st, err := sqlite.NewStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })

		require.NoError(t, st.ApplyMigrations())
		return st
	})
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "admindash.db") + "?_pragma=busy_timeout(5000)"

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Close())

	st, err = sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(t.Context()))
}
