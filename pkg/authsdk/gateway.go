package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

// Gateway sends authenticated requests on behalf of a Session. A 401 is
// answered with one forced refresh and one resend; a second 401 ends with
// ErrUnauthenticated.
type Gateway struct {
	client  *Client
	session *Session
}

func NewGateway(client *Client, session *Session) *Gateway {
	return &Gateway{client: client, session: session}
}

// Do sends body (may be nil) to path with the session's bearer token. The
// caller owns the returned body. A 401 response is never returned.
func (g *Gateway) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := g.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_ = resp.Body.Close()

	token, err = g.session.refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = g.send(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: request rejected after refresh", ErrUnauthenticated)
	}
	return resp, nil
}

// DoJSON encodes in (when not nil), sends it and decodes a response with
// status want into out.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, in, out any, want int) error {
	payload, err := marshalBody(in)
	if err != nil {
		return err
	}

	resp, err := g.Do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, want)
}

func (g *Gateway) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	req, err := g.client.newRequest(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}
	return g.client.send(req)
}
