package authkit

import (
	"net/http"
	"time"

	"authkit-session/internal/browser"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/locks"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/storage"
)

// Defaults
const (
	DefaultRefreshBuffer       = 10 * time.Second
	DefaultAutoRefreshInterval = time.Second
)

// RedirectParams is passed to the redirect callback after a successful code exchange.
type RedirectParams struct {
	// State is the JSON value given to SignIn, decoded: objects arrive as
	// map[string]interface{}, arrays as []interface{}, numbers as float64.
	// It is nil when SignIn had no state.
	State interface{}
	oauth2.AuthenticationResponse
}

// RefreshFailureParams is passed to the refresh failure hook.
type RefreshFailureParams struct {
	// SignIn starts a new login, bound to the client whose session ended.
	SignIn func(opts SignInOptions) error
	// Err is the provider's rejection.
	Err error
}

type options struct {
	redirectURI         string
	apiHostname         string
	https               bool
	port                int
	devMode             *bool
	refreshBuffer       time.Duration
	autoRefreshInterval time.Duration
	lockTimeout         time.Duration

	onBeforeAutoRefresh func() bool
	onRedirectCallback  func(RedirectParams)
	onRefresh           func(oauth2.OnRefreshResponse)
	onRefreshFailure    func(RefreshFailureParams)

	authenticator oauth2.Authenticator
	locker        locks.Locker
	memory        *storage.MemoryStore
	persistent    storage.Store
	window        browser.Window
	httpClient    *http.Client
	logger        logging.Logger
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		apiHostname:         oauth2.DefaultHostname,
		https:               true,
		refreshBuffer:       DefaultRefreshBuffer,
		autoRefreshInterval: DefaultAutoRefreshInterval,
		lockTimeout:         locks.DefaultTimeout,
		now:                 time.Now,
	}
}

// Option configures a Client.
type Option func(*options)

// WithRedirectURI sets where the hosted login page sends the user back to.
// Defaults to the window origin.
func WithRedirectURI(uri string) Option {
	return func(o *options) { o.redirectURI = uri }
}

// WithAPIHostname overrides the identity provider host.
func WithAPIHostname(hostname string) Option {
	return func(o *options) { o.apiHostname = hostname }
}

// WithHTTPS selects https (the default) or plain http for the API.
func WithHTTPS(https bool) Option {
	return func(o *options) { o.https = https }
}

// WithPort sets an explicit API port.
func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithDevMode overrides development mode. It defaults to true when the window
// host is localhost or 127.0.0.1.
func WithDevMode(devMode bool) Option {
	return func(o *options) { o.devMode = &devMode }
}

// WithRefreshBuffer sets how long before expiry a token is refreshed.
func WithRefreshBuffer(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.refreshBuffer = d
		}
	}
}

// WithAutoRefreshInterval sets how often the background refresh check runs.
func WithAutoRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.autoRefreshInterval = d
		}
	}
}

// WithLockTimeout bounds the wait for the refresh lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithOnBeforeAutoRefresh gates background refreshes. Defaults to "the page is visible".
func WithOnBeforeAutoRefresh(fn func() bool) Option {
	return func(o *options) { o.onBeforeAutoRefresh = fn }
}

// WithOnRedirectCallback is called after a successful code exchange.
func WithOnRedirectCallback(fn func(RedirectParams)) Option {
	return func(o *options) { o.onRedirectCallback = fn }
}

// WithOnRefresh is called after every successful exchange.
func WithOnRefresh(fn func(oauth2.OnRefreshResponse)) Option {
	return func(o *options) { o.onRefresh = fn }
}

// WithOnRefreshFailure is called when an established session is rejected by the provider.
func WithOnRefreshFailure(fn func(RefreshFailureParams)) Option {
	return func(o *options) { o.onRefreshFailure = fn }
}

// WithAuthenticator replaces the HTTP authenticator.
func WithAuthenticator(a oauth2.Authenticator) Option {
	return func(o *options) { o.authenticator = a }
}

// WithLocker sets the refresh lock backend. Defaults to locks.DefaultBroker.
func WithLocker(l locks.Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithMemoryStore sets the per-client ephemeral store.
func WithMemoryStore(s *storage.MemoryStore) Option {
	return func(o *options) { o.memory = s }
}

// WithPersistentStore sets where the refresh token is kept in development
// mode. Defaults to the window's local storage.
func WithPersistentStore(s storage.Store) Option {
	return func(o *options) { o.persistent = s }
}

// WithWindow attaches the client to a page.
func WithWindow(w browser.Window) Option {
	return func(o *options) { o.window = w }
}

// WithHTTPClient sets the client used for the API and background logout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
