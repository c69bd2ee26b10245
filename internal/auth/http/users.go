package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/admindash/internal/auth/domain"
	"github.com/aussiebroadwan/admindash/internal/auth/service"
	"github.com/aussiebroadwan/admindash/pkg/authsdk"
	"github.com/aussiebroadwan/admindash/pkg/httpx"
	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

type UsersHandler struct {
	UserService *service.UserService
}

// HandleList returns every user.
//
//	@Summary		List users
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserListResponse	"All users, oldest first"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		500	{object}	authsdk.ErrorResponse		"Internal server error"
//	@Router			/api/v1/user [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserListResponse{Success: true, Data: toSDKUsers(users)})
}

// HandleGet returns one user.
//
//	@Summary		Get user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse	"The user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid access token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"No such user"
//	@Router			/api/v1/user/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{Success: true, Data: toSDKUser(u)})
}

// HandleCreate adds a user. Requires the admin role.
//
//	@Summary		Create user
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"New user"
//	@Success		201		{object}	authsdk.UserResponse		"Created user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or email already registered"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Caller is not an admin"
//	@Router			/api/v1/user [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "request body must be valid JSON", nil)
		return
	}

	u, err := h.UserService.Create(r.Context(), service.CreateUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, authsdk.UserResponse{Success: true, Data: toSDKUser(u)})
}

// HandleUpdate changes the fields present in the body. Requires the
// admin role.
//
//	@Summary		Update user
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse		"Updated user"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Validation failed or email already registered"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		403		{object}	authsdk.ErrorResponse		"Caller is not an admin"
//	@Failure		404		{object}	authsdk.ErrorResponse		"No such user"
//	@Router			/api/v1/user/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "request body must be valid JSON", nil)
		return
	}

	patch := domain.UserPatch{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}

	u, err := h.UserService.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{Success: true, Data: toSDKUser(u)})
}

// HandleDelete removes a user and returns it. Requires the admin role.
//
//	@Summary		Delete user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse	"Deleted user"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Caller is not an admin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"No such user"
//	@Router			/api/v1/user/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, err := h.UserService.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{Success: true, Data: toSDKUser(u)})
}

func (h *UsersHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, "validation failed", verr.Details)
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusBadRequest, "email already registered", nil)
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "user not found", nil)
	default:
		slogx.FromContext(r.Context()).Error("user directory failure", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
