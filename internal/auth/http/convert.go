package http

import (
	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/pkg/authsdk"
)

func toSDKUser(u domain.User) authsdk.User {
	return authsdk.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toSDKUsers(users []domain.User) []authsdk.User {
	out := make([]authsdk.User, 0, len(users))
	for _, u := range users {
		out = append(out, toSDKUser(u))
	}
	return out
}

func toSDKTokens(p domain.TokenPair) authsdk.Tokens {
	return authsdk.Tokens{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessExpiresAt.UnixMilli(),
		RefreshTokenExpiresAt: p.RefreshExpiresAt.UnixMilli(),
	}
}
