// Package memory is a map-backed store.Store for tests and throwaway
// deployments. Transactions hold the store lock and work on a copy that
// replaces the live data on commit.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
)

var errTxDone = errors.New("memory: transaction already finished")

type state struct {
	users  map[string]domain.User
	emails map[string]string // normalized email -> user id
	tokens map[string]domain.RefreshToken
}

func newState() *state {
	return &state{
		users:  make(map[string]domain.User),
		emails: make(map[string]string),
		tokens: make(map[string]domain.RefreshToken),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

// view runs fn against the live data under the lock.
func (s *Store) view(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

func (s *Store) Users() store.Users                 { return &usersRepo{run: s.view} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{run: s.view, now: s.now} }

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, work: s.data.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	parent *Store
	work   *state
	done   bool
}

func (t *txStore) run(fn func(*state) error) error {
	if t.done {
		return errTxDone
	}
	return fn(t.work)
}

func (t *txStore) Users() store.Users { return &usersRepo{run: t.run} }
func (t *txStore) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{run: t.run, now: t.parent.now}
}

func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, errTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error { return errTxDone }

func (t *txStore) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.parent.data = t.work
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

type usersRepo struct {
	run func(func(*state) error) error
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := r.run(func(s *state) error {
		found, ok := s.users[id]
		if !ok {
			return store.ErrNotFound
		}
		u = found
		return nil
	})
	return u, err
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.run(func(s *state) error {
		id, ok := s.emails[domain.NormalizeEmail(email)]
		if !ok {
			return store.ErrNotFound
		}
		u = s.users[id]
		return nil
	})
	return u, err
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.run(func(s *state) error {
		out = make([]domain.User, 0, len(s.users))
		for _, u := range s.users {
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	return r.run(func(s *state) error {
		email := domain.NormalizeEmail(u.Email)
		if _, ok := s.users[u.ID]; ok {
			return store.ErrAlreadyExists
		}
		if _, ok := s.emails[email]; ok {
			return store.ErrAlreadyExists
		}
		u.Email = email
		s.users[u.ID] = u
		s.emails[email] = u.ID
		return nil
	})
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	return r.run(func(s *state) error {
		cur, ok := s.users[u.ID]
		if !ok {
			return store.ErrNotFound
		}
		email := domain.NormalizeEmail(u.Email)
		if owner, taken := s.emails[email]; taken && owner != u.ID {
			return store.ErrAlreadyExists
		}

		delete(s.emails, cur.Email)
		cur.Email = email
		cur.Name = u.Name
		cur.Role = u.Role
		cur.UpdatedAt = u.UpdatedAt
		s.users[u.ID] = cur
		s.emails[email] = u.ID
		return nil
	})
}

func (r *usersRepo) DeleteUser(ctx context.Context, id string) error {
	return r.run(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return store.ErrNotFound
		}
		delete(s.users, id)
		delete(s.emails, u.Email)
		for hash, t := range s.tokens {
			if t.UserID == id {
				delete(s.tokens, hash)
			}
		}
		return nil
	})
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var empty bool
	err := r.run(func(s *state) error {
		empty = len(s.users) == 0
		return nil
	})
	return empty, err
}

type refreshTokensRepo struct {
	run func(func(*state) error) error
	now func() time.Time
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	return r.run(func(s *state) error {
		if _, ok := s.users[t.UserID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.tokens[t.TokenHash]; ok {
			return store.ErrAlreadyExists
		}
		s.tokens[t.TokenHash] = t
		return nil
	})
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string) (bool, error) {
	var removed bool
	err := r.run(func(s *state) error {
		if _, ok := s.tokens[hash]; ok {
			delete(s.tokens, hash)
			removed = true
		}
		return nil
	})
	return removed, err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	var n int64
	now := r.now()
	err := r.run(func(s *state) error {
		for hash, t := range s.tokens {
			if !t.ExpiresAt.After(now) {
				delete(s.tokens, hash)
				n++
			}
		}
		return nil
	})
	return n, err
}
