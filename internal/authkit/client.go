// Package authkit manages the browser session of an application signed in
// through a hosted login page with the authorization code flow and PKCE.
//
// A Client starts in StateInitial. Initialize either completes a redirect
// callback or silently refreshes an existing session, after which a
// background check keeps the access token fresh. Concurrent callers share a
// single in-flight refresh, and the refresh runs under the named lock
// RefreshLockName so clients in other tabs or processes never submit the same
// refresh token twice.
//
//	client, err := authkit.CreateClient(ctx, "client_01HXRMBQ9BJ3E7QSTQ9X2PHVB7",
//		authkit.WithRedirectURI("http://localhost:3000/callback"),
//		authkit.WithWindow(window),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Dispose()
//
//	token, err := client.GetAccessToken(ctx, false)
//	if errors.IsType(err, errors.ErrTypeLoginRequired) {
//		_ = client.SignIn(ctx, authkit.SignInOptions{})
//	}
package authkit

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"authkit-session/internal/browser"
	"authkit-session/internal/common/errors"
	commonhttp "authkit-session/internal/common/http"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/locks"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/session"
	"authkit-session/internal/storage"
)

const (
	// RefreshLockName guards refreshes across every client sharing a session.
	RefreshLockName = "WORKOS_REFRESH_SESSION"
	// SessionCookie is set by the identity provider while a cookie session exists.
	SessionCookie = "workos-has-session"
)

// State is the session lifecycle state.
type State int

const (
	StateInitial State = iota
	StateAuthenticating
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// pending is the shared result of an in-flight exchange.
type pending struct {
	done chan struct{}
	resp *oauth2.AuthenticationResponse
	err  error
}

func newPending() *pending {
	return &pending{done: make(chan struct{})}
}

func (p *pending) resolve(resp *oauth2.AuthenticationResponse, err error) {
	p.resp, p.err = resp, err
	close(p.done)
}

func (p *pending) wait(ctx context.Context) (*oauth2.AuthenticationResponse, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Client is the session manager. It is safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	state    State
	inflight *pending // set while state is StateAuthenticating

	clientID    string
	baseURL     string
	redirectURI string
	devMode     bool
	opts        options

	auth    oauth2.Authenticator
	locker  locks.Locker
	session *session.Store
	memory  *storage.MemoryStore
	window  browser.Window
	logger  logging.Logger

	lifetime context.Context
	stop     context.CancelFunc
	cron     *cron.Cron
	disposed bool
}

// New builds a Client without touching the network. An empty clientID fails
// with a config AppError coded errors.CodeNoClientID.
func New(clientID string, opts ...Option) (*Client, error) {
	if clientID == "" {
		return nil, errors.NoClientIDError()
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logging.GetGlobalLogger()
	}
	logger := o.logger.WithFields(logging.Field{Key: "component", Value: "authkit"})

	if o.window == nil {
		o.window = browser.NewMemoryWindow("http://localhost/")
	}
	href := o.window.Href()

	devMode := isLoopback(browser.Hostname(href))
	if o.devMode != nil {
		devMode = *o.devMode
	}

	redirectURI := o.redirectURI
	if redirectURI == "" {
		redirectURI = browser.Origin(href)
	}

	if o.onBeforeAutoRefresh == nil {
		window := o.window
		o.onBeforeAutoRefresh = func() bool { return !window.Hidden() }
	}
	if o.httpClient == nil {
		o.httpClient = commonhttp.NewHTTPClient(
			commonhttp.WithTimeout(30*time.Second),
			commonhttp.WithCookieJar(commonhttp.NewCookieJar()),
		)
	}

	baseURL := oauth2.BaseURL(o.apiHostname, o.https, o.port)
	if o.authenticator == nil {
		httpAuth, err := oauth2.NewClient(oauth2.Config{
			ClientID:   clientID,
			BaseURL:    baseURL,
			HTTPClient: o.httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		o.authenticator = httpAuth
	}

	if o.locker == nil {
		locker, err := locks.Select(locks.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		o.locker = locker
	}

	if o.memory == nil {
		o.memory = storage.NewMemoryStore()
	}
	if o.persistent == nil {
		o.persistent = o.window.LocalStorage()
	}

	sessionStore, err := session.NewStore(session.Options{
		Memory:     o.memory,
		Persistent: o.persistent,
		DevMode:    devMode,
		Now:        o.now,
	})
	if err != nil {
		return nil, err
	}

	lifetime, stop := context.WithCancel(context.Background())

	return &Client{
		state:       StateInitial,
		clientID:    clientID,
		baseURL:     baseURL,
		redirectURI: redirectURI,
		devMode:     devMode,
		opts:        o,
		auth:        o.authenticator,
		locker:      o.locker,
		session:     sessionStore,
		memory:      o.memory,
		window:      o.window,
		logger:      logger,
		lifetime:    lifetime,
		stop:        stop,
	}, nil
}

// CreateClient builds a Client and initializes it.
func CreateClient(ctx context.Context, clientID string, opts ...Option) (*Client, error) {
	c, err := New(clientID, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx); err != nil {
		c.Dispose()
		return nil, err
	}
	return c, nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DevMode reports whether the refresh token is kept in persistent storage
// and sent explicitly rather than through the session cookie.
func (c *Client) DevMode() bool {
	return c.devMode
}

// RedirectURI returns the configured redirect target.
func (c *Client) RedirectURI() string {
	return c.redirectURI
}

func (c *Client) useCookie() bool {
	return !c.devMode
}

// ShouldRefresh reports whether the access token needs refreshing.
//
// Initial and Authenticating always refresh (nothing usable is cached, or a
// fresher token is on its way). Error never does; only a forced refresh
// leaves it. Authenticated refreshes once now is within the refresh buffer of
// the computed expiry, or when no token is cached.
func (c *Client) ShouldRefresh() bool {
	switch c.State() {
	case StateInitial, StateAuthenticating:
		return true
	case StateError:
		return false
	}

	ctx := context.Background()
	if _, ok, err := c.session.AccessToken(ctx); err != nil || !ok {
		return true
	}
	expiresAt, ok, err := c.session.ExpiresAt(ctx)
	if err != nil || !ok {
		return true
	}
	return !c.opts.now().Before(expiresAt.Add(-c.opts.refreshBuffer))
}

// GetAccessToken returns a usable access token, refreshing first when forced
// or when ShouldRefresh says so. A rejected refresh and a missing token both
// surface as a login_required AppError; other refresh errors pass through.
func (c *Client) GetAccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	if forceRefresh || c.ShouldRefresh() {
		if _, err := c.RefreshSession(ctx, ""); err != nil {
			if errors.IsType(err, errors.ErrTypeRefresh) {
				return "", errors.LoginRequiredError(err)
			}
			return "", err
		}
	}

	token, ok, err := c.session.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", errors.LoginRequiredError(nil)
	}
	return token, nil
}

// GetUser returns the signed-in user, or nil.
func (c *Client) GetUser(ctx context.Context) (*oauth2.User, error) {
	return c.session.User(ctx)
}

// Dispose stops background refreshes, abandons in-flight work and forgets
// the in-memory session. A refresh token persisted in development mode is kept.
func (c *Client) Dispose() {
	c.mu.Lock()
	c.disposed = true
	scheduler := c.cron
	c.cron = nil
	c.mu.Unlock()

	c.stop()
	if scheduler != nil {
		scheduler.Stop()
	}
	c.memory.Reset()
}
