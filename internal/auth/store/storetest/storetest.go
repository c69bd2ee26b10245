// Package storetest is a conformance suite shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/pkg/idx"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

// Run exercises a driver. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("users crud", func(t *testing.T) { testUsersCRUD(t, newStore(t)) })
	t.Run("duplicate email", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("list order", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("consume once", func(t *testing.T) { testConsumeOnce(t, newStore(t)) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("expired purge", func(t *testing.T) { testExpiredPurge(t, newStore(t)) })
	t.Run("delete cascades tokens", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("tx rollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
}

// NewUser returns a random user record.
func NewUser(role domain.Role) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		ID:        idx.New().String(),
		Email:     gofakeit.Email(),
		Name:      gofakeit.Name(),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testUsersCRUD(t *testing.T, st store.Store) {
	ctx := context.Background()

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	u := NewUser(domain.RoleUser)
	u.Email = "  Mixed.Case@Example.COM "
	u.PasswordHash = "$argon2id$fake"
	require.NoError(t, st.Users().CreateUser(ctx, u))

	got, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "mixed.case@example.com", got.Email)
	require.Equal(t, u.Name, got.Name)
	require.Equal(t, domain.RoleUser, got.Role)
	require.Equal(t, u.PasswordHash, got.PasswordHash)
	require.True(t, u.CreatedAt.Equal(got.CreatedAt))

	byEmail, err := st.Users().GetUserByEmail(ctx, "MIXED.case@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	got.Name = "Renamed"
	got.Role = domain.RoleAdmin
	got.UpdatedAt = got.UpdatedAt.Add(time.Second)
	require.NoError(t, st.Users().UpdateUser(ctx, got))

	updated, err := st.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, domain.RoleAdmin, updated.Role)
	require.Equal(t, u.PasswordHash, updated.PasswordHash, "update must not touch the credential")

	require.NoError(t, st.Users().DeleteUser(ctx, u.ID))
	_, err = st.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, st.Users().DeleteUser(ctx, u.ID), store.ErrNotFound)

	missing := NewUser(domain.RoleUser)
	require.ErrorIs(t, st.Users().UpdateUser(ctx, missing), store.ErrNotFound)
}

func testDuplicateEmail(t *testing.T, st store.Store) {
	ctx := context.Background()

	a := NewUser(domain.RoleUser)
	b := NewUser(domain.RoleUser)
	require.NoError(t, st.Users().CreateUser(ctx, a))
	require.NoError(t, st.Users().CreateUser(ctx, b))

	clash := NewUser(domain.RoleUser)
	clash.Email = a.Email
	require.ErrorIs(t, st.Users().CreateUser(ctx, clash), store.ErrAlreadyExists)

	b.Email = a.Email
	require.ErrorIs(t, st.Users().UpdateUser(ctx, b), store.ErrAlreadyExists)
}

func testListOrder(t *testing.T, st store.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var want []string
	for i := range 3 {
		u := NewUser(domain.RoleUser)
		u.CreatedAt = base.Add(time.Duration(i) * time.Second)
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, st.Users().CreateUser(ctx, u))
		want = append(want, u.ID)
	}

	list, err := st.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, u := range list {
		require.Equal(t, want[i], u.ID)
	}
}

func seedToken(t *testing.T, st store.Store, expires time.Time) (domain.User, domain.RefreshToken) {
	t.Helper()
	ctx := context.Background()

	u := NewUser(domain.RoleAdmin)
	require.NoError(t, st.Users().CreateUser(ctx, u))

	tok := domain.RefreshToken{
		TokenHash: idx.New().String(),
		UserID:    u.ID,
		ExpiresAt: expires,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, tok))
	return u, tok
}

func testConsumeOnce(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, tok := seedToken(t, st, time.Now().Add(time.Hour))

	ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.RefreshTokens().ConsumeRefreshToken(ctx, "never-issued")
	require.NoError(t, err)
	require.False(t, ok)
}

func testConcurrentConsume(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, tok := seedToken(t, st, time.Now().Add(time.Hour))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func testExpiredPurge(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, expired := seedToken(t, st, time.Now().Add(-time.Minute))
	_, live := seedToken(t, st, time.Now().Add(time.Hour))

	n, err := st.RefreshTokens().DeleteExpiredRefreshTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, expired.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = st.RefreshTokens().ConsumeRefreshToken(ctx, live.TokenHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func testDeleteCascades(t *testing.T, st store.Store) {
	ctx := context.Background()
	u, tok := seedToken(t, st, time.Now().Add(time.Hour))

	require.NoError(t, st.Users().DeleteUser(ctx, u.ID))

	ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func testTxRollback(t *testing.T, st store.Store) {
	ctx := context.Background()
	_, tok := seedToken(t, st, time.Now().Add(time.Hour))
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Rolled back, so the token is still live.
	ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.True(t, ok)
}
