package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// newRequest builds a request with a replayable body. A non-empty token is
// sent as a bearer credential.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, token string) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs req and reports every failure to get a response as
// ErrTransport, including deadline and cancellation.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

// doJSON marshals body (when not nil) and performs the request.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	payload, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	return c.send(req)
}

func marshalBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return payload, nil
}

// decodeJSON decodes a response into target, or returns an *APIError when
// the status is not the expected one. The body is always closed.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// classifyUnauthorized maps a 401 onto the token error kinds by its error
// code. A 401 without a known code is an invalid token.
func classifyUnauthorized(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}

	switch apiErr.Code {
	case CodeExpiredToken:
		return joinAPIError(ErrExpiredToken, apiErr)
	case CodeRevokedToken:
		return joinAPIError(ErrRevokedToken, apiErr)
	default:
		return joinAPIError(ErrInvalidToken, apiErr)
	}
}

// joinAPIError tags apiErr with kind so both errors.Is(kind) and
// errors.As(*APIError) hold.
func joinAPIError(kind error, apiErr *APIError) error {
	return fmt.Errorf("%w: %w", kind, apiErr)
}
