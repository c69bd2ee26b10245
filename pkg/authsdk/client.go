package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// Client talks to the unauthenticated endpoints of the admin API. Sessions
// use it for login, refresh and logout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the API served at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Login exchanges credentials for a token pair and the user's profile.
// A rejected login is ErrInvalidCredentials. Field validation failures are
// an *APIError with Details.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/auth/login", LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, joinAPIError(ErrInvalidCredentials, apiErr)
		}
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken into a new pair. The old token is spent
// whether or not this call sees the answer.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, classifyUnauthorized(err)
	}
	return &out.Tokens, nil
}

// Logout asks the server to forget refreshToken. The server answers
// success for any token, so an error here is a transport problem.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/auth/logout", LogoutRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return err
	}

	var out SuccessResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// Validate checks an access token against the server.
func (c *Client) Validate(ctx context.Context, accessToken string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/auth/validate", nil, accessToken)
	if err != nil {
		return err
	}

	var out SuccessResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return classifyUnauthorized(err)
	}
	return nil
}

// Health calls the unversioned GET /api/health endpoint.
func (c *Client) Health(ctx context.Context) (*APIHealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, "")
	if err != nil {
		return nil, err
	}

	var out APIHealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liveness calls GET /livez.
func (c *Client) Liveness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/livez")
}

// Readiness calls GET /readyz. A failing dependency is an *APIError with
// status 503.
func (c *Client) Readiness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/readyz")
}

func (c *Client) probe(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
