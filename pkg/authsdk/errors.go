package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds. Every error the SDK returns matches exactly one of these
// under errors.Is, except *APIError for plain non-auth API failures.
var (
	// ErrInvalidCredentials is a rejected login. Show it to the user as is.
	ErrInvalidCredentials = errors.New("authsdk: invalid credentials")

	ErrInvalidToken = errors.New("authsdk: invalid token")
	ErrExpiredToken = errors.New("authsdk: expired token")
	ErrRevokedToken = errors.New("authsdk: revoked token")

	// ErrTransport means the server could not be reached or did not answer
	// in time. The session is left as it was.
	ErrTransport = errors.New("authsdk: transport failure")

	// ErrMalformedState means persisted credentials could not be decoded.
	// The Session discards them and starts unauthenticated.
	ErrMalformedState = errors.New("authsdk: malformed stored state")

	// ErrUnauthenticated means there is no usable session: log in again.
	ErrUnauthenticated = errors.New("authsdk: unauthenticated")
)

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authsdk: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("authsdk: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		apiErr.Message = env.Error
		apiErr.Code = env.Code
		apiErr.Details = env.Details
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	return apiErr
}
