/*
Package authsdk is the client SDK for the admin dashboard API.

# Overview

The package is organized around three types:

  - Client: unauthenticated calls (login, refresh, logout, health)
  - Session: the token lifecycle, with silent renewal and persistence
  - Gateway: authenticated API calls that renew and retry on 401

	client := authsdk.NewClient("https://admin.example.com")
	session := authsdk.NewSession(client, authsdk.SessionOptions{
		Store: authsdk.NewFileStore(path),
	})
	api := authsdk.NewGateway(client, session)

	if _, err := session.Login(ctx, email, password); err != nil {
		if errors.Is(err, authsdk.ErrInvalidCredentials) {
			// wrong email or password
		}
		return err
	}

	users, err := api.ListUsers(ctx)

# Token Renewal

Session.AccessToken returns the current access token while it is outside
the expiry skew (30 seconds by default) and refreshes otherwise. Concurrent
callers that need a refresh share a single request. The refresh runs
detached from any one caller's context, bounded by RefreshTimeout, so a
caller that gives up does not fail the others.

Refresh tokens are single use. If the server rejects the refresh the
session is cleared and ErrUnauthenticated is returned. A transport failure
leaves the session untouched and returns ErrTransport, so the next call can
try again.

Start launches a poller that renews an access token before it would expire
and ends a session whose refresh token has run out:

	session.Start()
	defer session.Stop()

# Retry on 401

Gateway.Do attaches the bearer token and sends the request. On a 401 it
forces one refresh and resends once. A second 401 ends with
ErrUnauthenticated; there is never a third attempt.

# Persistence

A Session saves its token pair under "auth_token_data" and the profile
under "user_info" in a CredentialStore, encoded by a Codec. MemoryStore and
FileStore are provided, as are JSONCodec (the default) and SealedCodec.
Persisted state is plaintext-equivalent: SealedCodec only keeps it
unreadable to someone without the key. State that cannot be decoded is
discarded and the session starts unauthenticated.

# State Changes

Subscribe observes transitions between Unauthenticated, Authenticating,
Authenticated and Refreshing, for example to send the user back to a login
screen:

	unsubscribe := session.Subscribe(func(from, to authsdk.SessionState) {
		if to == authsdk.Unauthenticated {
			showLogin()
		}
	})
	defer unsubscribe()

# Errors

Failures match one of ErrInvalidCredentials, ErrInvalidToken,
ErrExpiredToken, ErrRevokedToken, ErrTransport, ErrMalformedState or
ErrUnauthenticated under errors.Is. Other API failures are an *APIError
carrying the status, the server's message and any per-field details.

# Thread Safety

Client, Session and Gateway are safe for concurrent use.
*/
package authsdk
