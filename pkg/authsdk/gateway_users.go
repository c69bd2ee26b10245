package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the profile of the session's user and refreshes the cached copy.
func (g *Gateway) Me(ctx context.Context) (*User, error) {
	var out MeResponse
	if err := g.DoJSON(ctx, http.MethodGet, apiPrefix+"/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s := g.session
	s.mu.Lock()
	if s.creds != nil {
		u := out.User
		s.user = &u
		s.persistLocked()
	}
	s.mu.Unlock()

	return &out.User, nil
}

// Validate asks the server whether the session's access token is accepted.
func (g *Gateway) Validate(ctx context.Context) error {
	var out SuccessResponse
	return g.DoJSON(ctx, http.MethodPost, apiPrefix+"/auth/validate", nil, &out, http.StatusOK)
}

// ListUsers returns the whole directory, oldest first.
func (g *Gateway) ListUsers(ctx context.Context) ([]User, error) {
	var out UserListResponse
	if err := g.DoJSON(ctx, http.MethodGet, apiPrefix+"/user", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (g *Gateway) GetUser(ctx context.Context, id string) (*User, error) {
	var out UserResponse
	if err := g.DoJSON(ctx, http.MethodGet, userPath(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreateUser requires the admin role. Validation failures come back as an
// *APIError with per-field Details.
func (g *Gateway) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var out UserResponse
	if err := g.DoJSON(ctx, http.MethodPost, apiPrefix+"/user", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateUser changes the set fields of req. Requires the admin role.
func (g *Gateway) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	var out UserResponse
	if err := g.DoJSON(ctx, http.MethodPut, userPath(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// DeleteUser removes a user and returns the deleted record. Requires the
// admin role.
func (g *Gateway) DeleteUser(ctx context.Context, id string) (*User, error) {
	var out UserResponse
	if err := g.DoJSON(ctx, http.MethodDelete, userPath(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func userPath(id string) string {
	return apiPrefix + "/user/" + url.PathEscape(id)
}
