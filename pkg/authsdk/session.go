package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/admindash/pkg/slogx"
)

// SessionState is where a Session is in its login lifecycle.
type SessionState int

const (
	Unauthenticated SessionState = iota
	Authenticating
	Authenticated
	Refreshing
)

func (s SessionState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session defaults.
const (
	DefaultPollInterval   = 5 * time.Minute
	DefaultLoginTimeout   = 10 * time.Second
	DefaultRefreshTimeout = 10 * time.Second
	DefaultExpirySkew     = 30 * time.Second
)

// SessionOptions configures a Session. Zero values take the defaults.
type SessionOptions struct {
	Store CredentialStore // default: MemoryStore
	Codec Codec           // default: JSONCodec

	PollInterval   time.Duration
	LoginTimeout   time.Duration
	RefreshTimeout time.Duration

	// ExpirySkew treats an access token as expired this long before its
	// real expiry.
	ExpirySkew time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

func (o *SessionOptions) setDefaults() {
	if o.Store == nil {
		o.Store = NewMemoryStore()
	}
	if o.Codec == nil {
		o.Codec = JSONCodec{}
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = DefaultLoginTimeout
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = DefaultRefreshTimeout
	}
	if o.ExpirySkew < 0 {
		o.ExpirySkew = 0
	} else if o.ExpirySkew == 0 {
		o.ExpirySkew = DefaultExpirySkew
	}
	if o.Logger == nil {
		o.Logger = slogx.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// StateListener observes session state transitions.
type StateListener func(from, to SessionState)

// Session owns the client side of the token lifecycle: login, silent
// renewal and logout. It is safe for concurrent use. Concurrent callers
// that need a refresh share one refresh request.
type Session struct {
	client *Client
	opts   SessionOptions
	group  singleflight.Group

	mu    sync.RWMutex
	state SessionState
	creds *StoredCredentials
	user  *User
	gen   uint64 // bumped whenever the credentials are replaced or cleared

	subMu   sync.Mutex
	subs    map[int]StateListener
	nextSub int

	pollMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSession creates a session and restores any credentials persisted in
// opts.Store. Unreadable or expired state is cleared and the session starts
// unauthenticated.
func NewSession(client *Client, opts SessionOptions) *Session {
	opts.setDefaults()

	s := &Session{
		client: client,
		opts:   opts,
		subs:   make(map[int]StateListener),
	}
	s.restore()
	return s
}

func (s *Session) restore() {
	l := s.opts.Logger

	creds, err := s.loadCredentials()
	if err != nil {
		l.Warn("discarding stored credentials", "error", err)
		s.wipeStore()
		return
	}
	if creds == nil {
		return
	}
	if creds.RefreshToken == "" || !s.opts.Now().Before(time.UnixMilli(creds.RefreshExpiresAt)) {
		l.Debug("stored session expired")
		s.wipeStore()
		return
	}

	user, err := s.loadUser()
	if err != nil {
		l.Warn("discarding stored credentials", "error", err)
		s.wipeStore()
		return
	}

	s.creds = creds
	s.user = user
	s.state = Authenticated
	l.Debug("session restored")
}

func (s *Session) loadCredentials() (*StoredCredentials, error) {
	raw, ok, err := s.opts.Store.Get(KeyTokenData)
	if err != nil || !ok {
		return nil, err
	}

	var creds StoredCredentials
	if err := s.opts.Codec.Decode(raw, &creds); err != nil {
		return nil, err
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: empty token data", ErrMalformedState)
	}
	return &creds, nil
}

func (s *Session) loadUser() (*User, error) {
	raw, ok, err := s.opts.Store.Get(KeyUserInfo)
	if err != nil || !ok {
		return nil, err
	}

	var u User
	if err := s.opts.Codec.Decode(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the profile returned at login, if any.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a refresh token is held and unexpired.
// The access token may still need renewing.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds != nil && s.refreshUsableLocked()
}

// Subscribe registers fn for state transitions and returns a function that
// removes it. Listeners run synchronously on the goroutine that caused the
// transition and must not block.
func (s *Session) Subscribe(fn StateListener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) notify(from, to SessionState) {
	if from == to {
		return
	}

	s.subMu.Lock()
	listeners := make([]StateListener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(from, to)
	}
}

// transition sets the state under s.mu and returns the previous one.
func (s *Session) transitionLocked(to SessionState) SessionState {
	from := s.state
	s.state = to
	return from
}

// Login authenticates with email and password. On failure the session is
// left unauthenticated, with ErrInvalidCredentials for a rejected login or
// ErrTransport when the server could not be reached.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	s.mu.Lock()
	from := s.transitionLocked(Authenticating)
	s.mu.Unlock()
	s.notify(from, Authenticating)

	ctx, cancel := context.WithTimeout(ctx, s.opts.LoginTimeout)
	defer cancel()

	resp, err := s.client.Login(ctx, email, password)

	s.mu.Lock()
	if err != nil {
		s.clearLocked()
		from = s.transitionLocked(Unauthenticated)
		s.mu.Unlock()
		s.notify(from, Unauthenticated)
		return User{}, err
	}

	creds := storedFromTokens(resp.Tokens)
	user := resp.User
	s.creds = &creds
	s.user = &user
	s.gen++
	s.persistLocked()
	from = s.transitionLocked(Authenticated)
	s.mu.Unlock()
	s.notify(from, Authenticated)

	s.opts.Logger.Info("logged in", "user_id", user.ID)
	return user, nil
}

// AccessToken returns a usable access token, refreshing first when the
// current one is expired or about to expire.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if s.endIfRefreshExpired() {
		return "", ErrUnauthenticated
	}

	s.mu.RLock()
	token, fresh, ok := s.currentLocked()
	s.mu.RUnlock()

	if !ok {
		return "", ErrUnauthenticated
	}
	if fresh {
		return token, nil
	}
	return s.refresh(ctx, "")
}

// ForceRefresh rotates the token pair even if the access token looks valid,
// for example after the server rejected it.
func (s *Session) ForceRefresh(ctx context.Context) (string, error) {
	if s.endIfRefreshExpired() {
		return "", ErrUnauthenticated
	}

	s.mu.RLock()
	token, _, ok := s.currentLocked()
	s.mu.RUnlock()

	if !ok {
		return "", ErrUnauthenticated
	}
	return s.refresh(ctx, token)
}

// endIfRefreshExpired clears a session whose refresh token is missing or
// expired. The access token may outlive the refresh token, so this is
// checked before the access token is looked at.
func (s *Session) endIfRefreshExpired() bool {
	s.mu.Lock()
	if s.creds == nil || s.refreshUsableLocked() {
		s.mu.Unlock()
		return false
	}
	s.clearLocked()
	from := s.transitionLocked(Unauthenticated)
	s.mu.Unlock()
	s.notify(from, Unauthenticated)
	s.opts.Logger.Info("session expired")
	return true
}

func (s *Session) refreshUsableLocked() bool {
	return s.creds.RefreshToken != "" && s.opts.Now().Before(time.UnixMilli(s.creds.RefreshExpiresAt))
}

// currentLocked returns the access token, whether it is outside the skew
// window, and whether the session holds credentials at all.
func (s *Session) currentLocked() (token string, fresh, ok bool) {
	if s.creds == nil {
		return "", false, false
	}
	deadline := time.UnixMilli(s.creds.ExpiresAt).Add(-s.opts.ExpirySkew)
	return s.creds.AccessToken, s.opts.Now().Before(deadline), true
}

// refresh joins or starts the shared refresh. stale is an access token the
// caller knows to be rejected; if the session already moved past it no new
// refresh is made. The refresh itself is detached from ctx so one caller
// giving up does not fail the others.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RefreshTimeout)
		defer cancel()
		return s.doRefresh(rctx, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	}
}

func (s *Session) doRefresh(ctx context.Context, stale string) (string, error) {
	l := s.opts.Logger

	s.mu.Lock()
	if s.creds == nil {
		s.mu.Unlock()
		return "", ErrUnauthenticated
	}

	// Someone else refreshed between our check and this flight.
	if token, fresh, _ := s.currentLocked(); fresh && (stale == "" || token != stale) {
		s.mu.Unlock()
		return token, nil
	}

	if !s.refreshUsableLocked() {
		s.clearLocked()
		from := s.transitionLocked(Unauthenticated)
		s.mu.Unlock()
		s.notify(from, Unauthenticated)
		l.Info("session expired")
		return "", ErrUnauthenticated
	}

	refreshToken := s.creds.RefreshToken
	gen := s.gen
	from := s.transitionLocked(Refreshing)
	s.mu.Unlock()
	s.notify(from, Refreshing)

	tokens, err := s.client.Refresh(ctx, refreshToken)

	s.mu.Lock()
	if s.gen != gen {
		// Logged out or logged in again while the request was in flight.
		s.mu.Unlock()
		return "", ErrUnauthenticated
	}

	if err != nil {
		if isTokenRejection(err) {
			s.clearLocked()
			from = s.transitionLocked(Unauthenticated)
			s.mu.Unlock()
			s.notify(from, Unauthenticated)
			l.Info("refresh rejected, session cleared", "error", err)
			return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}

		from = s.transitionLocked(Authenticated)
		s.mu.Unlock()
		s.notify(from, Authenticated)
		l.Warn("refresh failed, keeping session", "error", err)
		return "", err
	}

	creds := storedFromTokens(*tokens)
	s.creds = &creds
	s.persistLocked()
	from = s.transitionLocked(Authenticated)
	s.mu.Unlock()
	s.notify(from, Authenticated)

	l.Debug("token pair refreshed")
	return creds.AccessToken, nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken)
}

// Logout ends the session. The local state is cleared unconditionally and
// the server is told on a best-effort basis; it never fails.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	var refreshToken string
	if s.creds != nil {
		refreshToken = s.creds.RefreshToken
	}
	s.clearLocked()
	from := s.transitionLocked(Unauthenticated)
	s.mu.Unlock()
	s.notify(from, Unauthenticated)

	if refreshToken == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
	defer cancel()
	if err := s.client.Logout(ctx, refreshToken); err != nil {
		s.opts.Logger.Debug("server logout failed", "error", err)
	}
}

// Check runs one poll: it ends a session whose refresh token has expired
// and renews an access token that would expire before the next poll.
func (s *Session) Check(ctx context.Context) error {
	if s.endIfRefreshExpired() {
		return ErrUnauthenticated
	}

	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()

	if creds == nil {
		return nil
	}

	horizon := s.opts.Now().Add(s.opts.PollInterval + s.opts.ExpirySkew)
	if horizon.Before(time.UnixMilli(creds.ExpiresAt)) {
		return nil
	}
	_, err := s.refresh(ctx, creds.AccessToken)
	return err
}

// Start launches the background poller. Calling it twice is a no-op.
func (s *Session) Start() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.poll(s.stopCh, s.doneCh)
}

// Stop halts the poller and waits for an in-progress check.
func (s *Session) Stop() {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh, s.doneCh = nil, nil
}

func (s *Session) poll(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Check(context.Background()); err != nil {
				s.opts.Logger.Debug("session poll", "error", err)
			}
		case <-stopCh:
			return
		}
	}
}

// clearLocked drops credentials from memory and the store.
func (s *Session) clearLocked() {
	s.creds = nil
	s.user = nil
	s.gen++
	s.wipeStore()
}

func (s *Session) wipeStore() {
	if err := s.opts.Store.Clear(); err != nil {
		s.opts.Logger.Warn("failed to clear stored credentials", "error", err)
	}
}

func (s *Session) persistLocked() {
	if err := s.put(KeyTokenData, s.creds); err != nil {
		s.opts.Logger.Warn("failed to persist credentials", "error", err)
	}
	if s.user == nil {
		return
	}
	if err := s.put(KeyUserInfo, s.user); err != nil {
		s.opts.Logger.Warn("failed to persist profile", "error", err)
	}
}

func (s *Session) put(key string, v any) error {
	raw, err := s.opts.Codec.Encode(v)
	if err != nil {
		return err
	}
	return s.opts.Store.Set(key, raw)
}
