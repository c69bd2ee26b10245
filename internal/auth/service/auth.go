package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/store"
	"github.com/aussiebroadwan/admindash/pkg/cryptox"
	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrExpiredToken       = errors.New("expired_token")
	ErrRevokedToken       = errors.New("revoked_token")
	ErrUnknownPrincipal   = errors.New("unknown_principal")
)

// AuthService issues, validates and rotates token pairs. Access and
// refresh tokens are signed by separate signers so neither can stand in
// for the other.
type AuthService struct {
	Store         store.Store
	AccessSigner  jwtx.TokenSigner
	RefreshSigner jwtx.TokenSigner
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Login checks the credentials and mints a fresh pair. Unknown email,
// a directory-only user and a wrong password all look the same to the
// caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.TokenPair, domain.User, error) {
	l := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.TokenPair{}, domain.User{}, ErrInvalidCredentials
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("login for unknown email")
			return domain.TokenPair{}, domain.User{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.CanLogin() {
		l.Info("login for user without credential", slog.String("user_id", u.ID))
		return domain.TokenPair{}, domain.User{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		switch {
		case errors.Is(err, cryptox.ErrPasswordMismatch):
			l.Info("login password mismatch", slog.String("user_id", u.ID))
		case errors.Is(err, cryptox.ErrInvalidHash):
			l.Error("stored password hash is corrupt", slog.String("user_id", u.ID))
		default:
			return domain.TokenPair{}, domain.User{}, fmt.Errorf("verify password: %w", err)
		}
		return domain.TokenPair{}, domain.User{}, ErrInvalidCredentials
	}

	pair, err := s.issue(ctx, s.Store, u)
	if err != nil {
		return domain.TokenPair{}, domain.User{}, err
	}

	l.Info("user logged in", slog.String("user_id", u.ID))
	return pair, u, nil
}

// ValidateAccess verifies an access token and returns its claims.
func (s *AuthService) ValidateAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := verify(s.AccessSigner, token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Type != jwtx.TypeAccess || claims.PrincipalID() == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Me loads the principal behind a validated access token.
func (s *AuthService) Me(ctx context.Context, principalID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUnknownPrincipal
		}
		return domain.User{}, err
	}
	return u, nil
}

// Refresh rotates a refresh token. The registry delete is the gate: of any
// number of concurrent calls presenting the same token exactly one sees
// the entry disappear, every other one gets ErrRevokedToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, cryptox.FingerprintToken(claims.TokenID))
		if err != nil {
			return fmt.Errorf("consume refresh token: %w", err)
		}
		if !consumed {
			return ErrRevokedToken
		}

		u, err := tx.Users().GetUserByID(ctx, claims.PrincipalID())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownPrincipal
			}
			return err
		}

		pair, err = s.issue(ctx, tx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRevokedToken) {
			l.Warn("refresh token replayed or unknown", slog.String("user_id", claims.PrincipalID()))
		}
		return domain.TokenPair{}, err
	}

	l.Debug("refresh token rotated", slog.String("user_id", claims.PrincipalID()))
	return pair, nil
}

// Logout drops the refresh token from the registry if it can be decoded.
// It never fails: a malformed, expired or already rotated token simply
// has nothing left to remove.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	l := slogx.FromContext(ctx)

	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		l.Debug("logout with unusable refresh token", slog.Any("error", err))
		return
	}

	removed, err := s.Store.RefreshTokens().ConsumeRefreshToken(ctx, cryptox.FingerprintToken(claims.TokenID))
	if err != nil {
		l.Error("failed to remove refresh token on logout",
			slog.String("user_id", claims.PrincipalID()),
			slog.Any("error", err),
		)
		return
	}
	l.Info("user logged out", slog.String("user_id", claims.PrincipalID()), slog.Bool("removed", removed))
}

func (s *AuthService) verifyRefresh(token string) (jwtx.Claims, error) {
	claims, err := verify(s.RefreshSigner, token)
	if err != nil {
		return jwtx.Claims{}, err
	}
	if claims.Type != jwtx.TypeRefresh || claims.TokenID == "" || claims.PrincipalID() == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// issue signs a new pair for u and registers its token id through st,
// which may be a transaction.
func (s *AuthService) issue(ctx context.Context, st store.Store, u domain.User) (domain.TokenPair, error) {
	// exp has second precision; the advertised expiries must match it.
	now := s.now().Truncate(time.Second)
	accessTTL, refreshTTL := s.ttls()
	tokenID := uuid.NewString()

	access, err := s.AccessSigner.Sign(jwtx.NewAccessClaims(u.ID, u.Role.String()).IssuedAtTime(now), accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.RefreshSigner.Sign(jwtx.NewRefreshClaims(u.ID, tokenID).IssuedAtTime(now), refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	pair := domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(accessTTL),
		RefreshExpiresAt: now.Add(refreshTTL),
	}

	err = st.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		TokenHash: cryptox.FingerprintToken(tokenID),
		UserID:    u.ID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("register refresh token: %w", err)
	}
	return pair, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) ttls() (time.Duration, time.Duration) {
	access, refresh := s.AccessTTL, s.RefreshTTL
	if access <= 0 {
		access = jwtx.DefaultAccessTokenTTL
	}
	if refresh <= 0 {
		refresh = jwtx.DefaultRefreshTokenTTL
	}
	return access, refresh
}

func verify(signer jwtx.TokenSigner, token string) (jwtx.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return jwtx.Claims{}, ErrInvalidToken
	}
	claims, err := signer.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return jwtx.Claims{}, ErrInvalidToken
	}
	return claims, nil
}
