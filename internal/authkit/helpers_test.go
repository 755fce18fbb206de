package authkit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"authkit-session/internal/browser"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/locks"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/redis"
)

const (
	testClientID    = "client_01HXRMBQ9BJ3E7QSTQ9X2PHVB7"
	testRedirectURI = "http://localhost:3000/callback"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func signAccessToken(t *testing.T, sessionID, organizationID string, issuedAt time.Time, lifetime time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, oauth2.AccessTokenClaims{
		SessionID:      sessionID,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_1",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// fakeAuth is a scripted Authenticator.
type fakeAuth struct {
	t *testing.T

	refreshCalls int32
	codeCalls    int32
	active       int32
	maxActive    int32

	mu          sync.Mutex
	lastRefresh oauth2.RefreshExchange
	lastCode    oauth2.CodeExchange
	lifetime    time.Duration
	refreshErr  error
	codeErr     error
	gate        chan struct{}
	started     chan struct{}
}

func newFakeAuth(t *testing.T) *fakeAuth {
	return &fakeAuth{t: t, lifetime: time.Hour}
}

func (f *fakeAuth) session(n int32, organizationID string) *oauth2.AuthenticationResponse {
	f.mu.Lock()
	lifetime := f.lifetime
	f.mu.Unlock()
	return &oauth2.AuthenticationResponse{
		User:           oauth2.User{Object: "user", ID: "user_1", Email: "ada@example.com"},
		AccessToken:    signAccessToken(f.t, "session_1", organizationID, time.Now(), lifetime),
		RefreshToken:   fmt.Sprintf("rt_%d", n),
		OrganizationID: organizationID,
	}
}

func (f *fakeAuth) ExchangeCode(ctx context.Context, req oauth2.CodeExchange) (*oauth2.AuthenticationResponse, error) {
	n := atomic.AddInt32(&f.codeCalls, 1)
	f.mu.Lock()
	f.lastCode = req
	err := f.codeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.session(n, ""), nil
}

func (f *fakeAuth) ExchangeRefreshToken(ctx context.Context, req oauth2.RefreshExchange) (*oauth2.AuthenticationResponse, error) {
	n := atomic.AddInt32(&f.refreshCalls, 1)

	active := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.maxActive)
		if active <= peak || atomic.CompareAndSwapInt32(&f.maxActive, peak, active) {
			break
		}
	}

	f.mu.Lock()
	f.lastRefresh = req
	gate, started, err := f.gate, f.started, f.refreshErr
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return f.session(n, req.OrganizationID), nil
}

func (f *fakeAuth) setRefreshErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshErr = err
}

func (f *fakeAuth) setCodeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codeErr = err
}

func (f *fakeAuth) setLifetime(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lifetime = d
}

// block makes refreshes wait until the returned release func is called.
func (f *fakeAuth) block() (started <-chan struct{}, release func()) {
	gate := make(chan struct{})
	s := make(chan struct{}, 1)
	f.mu.Lock()
	f.gate, f.started = gate, s
	f.mu.Unlock()
	var once sync.Once
	return s, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeAuth) lastRefreshRequest() oauth2.RefreshExchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRefresh
}

func (f *fakeAuth) lastCodeRequest() oauth2.CodeExchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCode
}

func (f *fakeAuth) refreshes() int32 {
	return atomic.LoadInt32(&f.refreshCalls)
}

func newTestClient(t *testing.T, auth oauth2.Authenticator, window *browser.MemoryWindow, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithAuthenticator(auth),
		WithWindow(window),
		WithRedirectURI(testRedirectURI),
		WithLocker(locks.NewNativeBroker()),
		WithLogger(logging.NewNopLogger()),
	}
	c, err := New(testClientID, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

// signedIn returns a client that has completed one refresh.
func signedIn(t *testing.T, auth *fakeAuth, window *browser.MemoryWindow, opts ...Option) *Client {
	t.Helper()
	c := newTestClient(t, auth, window, opts...)
	_, err := c.RefreshSession(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, c.State())
	return c
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.Config{Address: mr.Addr(), KeyPrefix: "authkit:"})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}
