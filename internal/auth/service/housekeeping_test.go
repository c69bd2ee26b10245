package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	f := newSQLiteFixture(t)
	f.seed(t)
	ctx := t.Context()

	// Issued in the past with a one minute lifetime, so already expired in
	// wall-clock terms the store compares against.
	f.clock.Advance(-time.Hour)
	f.auth.RefreshTTL = time.Minute
	_, _, err := f.auth.Login(ctx, SeedAdminEmail, SeedAdminPassword)
	require.NoError(t, err)

	hk := NewHousekeepingService(f.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	require.Equal(t, int64(1), hk.Sweep(ctx))
	require.Equal(t, int64(0), hk.Sweep(ctx))
}

func TestHousekeepingStartStop(t *testing.T) {
	f := newMemoryFixture(t)
	hk := NewHousekeepingService(f.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}
