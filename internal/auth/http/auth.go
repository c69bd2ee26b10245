package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/pkg/authsdk"
	"github.com/aussiebroadwan/admindash/pkg/httpx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleLogin exchanges credentials for a token pair.
//
//	@Summary		Log in
//	@Description	Checks email and password and returns a fresh access/refresh token pair with the user profile.
//	@Description	Expiries are absolute epoch milliseconds.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Token pair and user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body or missing fields"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "request body must be valid JSON", nil)
		return
	}

	details := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "required"
	}
	if req.Password == "" {
		details["password"] = "required"
	}
	if len(details) > 0 {
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", details)
		return
	}

	pair, user, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteErrorCode(w, http.StatusUnauthorized, httpx.CodeInvalidCredentials, "invalid email or password")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Success: true,
		Message: "login successful",
		Tokens:  toSDKTokens(pair),
		User:    toSDKUser(user),
	})
}

// HandleValidate reports whether the bearer access token is valid. The
// authn middleware has already done the work.
//
//	@Summary		Validate access token
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.SuccessResponse	"Token is valid"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired access token"
//	@Router			/api/v1/auth/validate [post].
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleMe returns the authenticated user.
//
//	@Summary		Current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"Authenticated user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired access token, or the user no longer exists"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/api/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		httpx.WriteUnauthorized(w, httpx.CodeInvalidToken, "missing principal")
		return
	}

	user, err := h.AuthService.Me(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownPrincipal) {
			httpx.WriteUnauthorized(w, httpx.CodeInvalidToken, "unknown principal")
			return
		}
		slogx.FromContext(ctx).Error("failed to load user", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{Success: true, User: toSDKUser(user)})
}

// HandleRefresh rotates a refresh token into a new pair. The presented
// token is dead afterwards whether or not the caller receives the answer.
//
//	@Summary		Refresh token pair
//	@Description	Single use: presenting the same refresh token twice fails the second time.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.RefreshResponse	"New token pair"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid, expired or already used refresh token"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/api/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "request body must be valid JSON", nil)
		return
	}

	pair, err := h.AuthService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExpiredToken):
			httpx.WriteUnauthorized(w, httpx.CodeExpiredToken, "refresh token expired")
		case errors.Is(err, service.ErrRevokedToken):
			httpx.WriteUnauthorized(w, httpx.CodeRevokedToken, "refresh token revoked")
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnknownPrincipal):
			httpx.WriteUnauthorized(w, httpx.CodeInvalidToken, "invalid refresh token")
		default:
			slogx.FromContext(ctx).Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{Success: true, Tokens: toSDKTokens(pair)})
}

// HandleLogout forgets a refresh token. It always succeeds.
//
//	@Summary		Log out
//	@Description	Best effort: a malformed, expired or already used token still yields success.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LogoutRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.SuccessResponse	"Logged out"
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LogoutRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		slogx.FromContext(r.Context()).Debug("logout with unreadable body", "err", err)
	}

	h.AuthService.Logout(r.Context(), req.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true, Message: "logged out"})
}
