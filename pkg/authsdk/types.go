package authsdk

import "time"

// ============================================================================
// Envelopes
// ============================================================================

// ErrorResponse is the failure envelope every endpoint uses.
type ErrorResponse struct {
	Success bool `json:"success"`

	// Error is a human-readable reason.
	Error string `json:"error"`

	// Code is a stable machine-readable reason, one of the Code constants.
	Code string `json:"code,omitempty"`

	// Details maps field names to validation failures, when there are any.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeRevokedToken       = "revoked_token"
)

// SuccessResponse is the body of endpoints that return nothing else.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Auth Types
// ============================================================================

// Tokens is a token pair on the wire. Expiries are absolute epoch
// milliseconds fixed when the pair was issued.
type Tokens struct {
	AccessToken           string `json:"accessToken"`
	RefreshToken          string `json:"refreshToken"`
	AccessTokenExpiresAt  int64  `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt int64  `json:"refreshTokenExpiresAt"`
}

// AccessExpiry returns AccessTokenExpiresAt as a time.
func (t Tokens) AccessExpiry() time.Time { return time.UnixMilli(t.AccessTokenExpiresAt) }

// RefreshExpiry returns RefreshTokenExpiresAt as a time.
func (t Tokens) RefreshExpiry() time.Time { return time.UnixMilli(t.RefreshTokenExpiresAt) }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Tokens  Tokens `json:"tokens"`
	User    User   `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Success bool   `json:"success"`
	Tokens  Tokens `json:"tokens"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type MeResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// ============================================================================
// User Types
// ============================================================================

// User is a directory entry.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateUserRequest changes only the fields that are set.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type UserResponse struct {
	Success bool `json:"success"`
	Data    User `json:"data"`
}

type UserListResponse struct {
	Success bool   `json:"success"`
	Data    []User `json:"data"`
}

// ============================================================================
// Health Types
// ============================================================================

// APIHealthResponse is returned by GET /api/health.
type APIHealthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the response structure for the probe endpoints.
// Used by both /livez and /readyz (readyz includes the Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`
}
