package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers (sqlite, memory)
// implement it and expose sub-repositories so a transaction scope can hand
// out the same repos bound to the transaction.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns ErrNotFound for an unknown id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches on the normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns every user, oldest first.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts u. A taken email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser overwrites name, email, role and updated_at of an existing
	// user. ErrNotFound for an unknown id, ErrAlreadyExists for a taken email.
	UpdateUser(ctx context.Context, u domain.User) error

	// DeleteUser removes the user and its refresh tokens.
	DeleteUser(ctx context.Context, id string) error

	// IsEmpty reports whether there are no users at all.
	IsEmpty(ctx context.Context) (bool, error)
}

// RefreshTokens is the registry of live refresh token ids.
type RefreshTokens interface {
	// CreateRefreshToken registers a freshly minted token id.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// ConsumeRefreshToken deletes the entry for hash and reports whether
	// this call was the one that removed it. Concurrent callers racing on the
	// same hash see exactly one true.
	ConsumeRefreshToken(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredRefreshTokens purges entries past their expiry and
	// returns how many were removed.
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}
