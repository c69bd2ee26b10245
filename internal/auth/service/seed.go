package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/idx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

// Default login seeded into an empty directory.
const (
	SeedAdminEmail    = "admin@example.com"
	SeedAdminPassword = "password123"
)

// SeedUser is one entry of the initial directory. An empty Password makes
// a directory-only user.
type SeedUser struct {
	Name     string
	Email    string
	Role     domain.Role
	Password string
}

// DefaultSeed is the directory a fresh install starts with.
var DefaultSeed = []SeedUser{
	{Name: "Admin", Email: SeedAdminEmail, Role: domain.RoleAdmin, Password: SeedAdminPassword},
	{Name: "Hong Gildong", Email: "hong@example.com", Role: domain.RoleAdmin},
	{Name: "Kim Cheolsu", Email: "kim@example.com", Role: domain.RoleUser},
	{Name: "Lee Younghee", Email: "lee@example.com", Role: domain.RoleUser},
}

type SeedService struct {
	Store store.Store
	Users []SeedUser
}

// SeedIfEmpty fills an empty directory in one transaction and reports
// whether it did anything.
func (s *SeedService) SeedIfEmpty(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("check directory: %w", err)
	}
	if !empty {
		l.Debug("directory already populated, skipping seed")
		return false, nil
	}

	seed := s.Users
	if seed == nil {
		seed = DefaultSeed
	}

	users := make([]domain.User, 0, len(seed))
	base := time.Now().UTC()
	for i, su := range seed {
		// Spread creation times so list order follows the seed order.
		at := base.Add(time.Duration(i) * time.Millisecond)
		u := domain.User{
			ID:        idx.NewAt(at).String(),
			Email:     su.Email,
			Name:      su.Name,
			Role:      su.Role,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if su.Password != "" {
			hash, err := cryptox.HashPassword(su.Password)
			if err != nil {
				return false, fmt.Errorf("hash seed password: %w", err)
			}
			u.PasswordHash = hash
		}
		users = append(users, u)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, u := range users {
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				return fmt.Errorf("seed %s: %w", u.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	l.Info("seeded user directory", slog.Int("users", len(users)))
	return true, nil
}
