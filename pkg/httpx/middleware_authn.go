package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/admindash/pkg/jwtx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

// TokenValidator checks an access token and returns its claims. An error
// matching jwtx.ErrExpired is reported to the client as expired.
type TokenValidator interface {
	ValidateAccess(ctx context.Context, token string) (jwtx.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[7:])
	return token, token != ""
}

// AuthnMiddleware rejects requests without a valid access token and puts
// the principal into the request context.
func AuthnMiddleware(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				WriteUnauthorized(w, CodeInvalidToken, "missing bearer token")
				return
			}

			claims, err := v.ValidateAccess(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Debug("access token rejected", "err", err)
				if errors.Is(err, jwtx.ErrExpired) {
					WriteUnauthorized(w, CodeExpiredToken, "access token expired")
					return
				}
				WriteUnauthorized(w, CodeInvalidToken, "token verification failed")
				return
			}

			ctx = contextWithAuth(ctx, claims)
			ctx = slogx.WithUserID(ctx, claims.PrincipalID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
