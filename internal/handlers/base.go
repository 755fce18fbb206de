// Package handlers serves the loopback host that drives an authkit session
// from a regular browser: each request stands in for a page load of one tab.
package handlers

import (
	"context"
	"sync"

	"authkit-session/internal/authkit"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/config"
	"authkit-session/internal/oauth2"
)

// Session is the part of authkit.Client the handlers drive.
type Session interface {
	State() authkit.State
	GetSignInURL(ctx context.Context, opts authkit.SignInOptions) (string, error)
	GetSignUpURL(ctx context.Context, opts authkit.SignInOptions) (string, error)
	GetAccessToken(ctx context.Context, forceRefresh bool) (string, error)
	GetUser(ctx context.Context) (*oauth2.User, error)
	SwitchToOrganization(ctx context.Context, organizationID string, opts authkit.SignInOptions) error
	SignOut(ctx context.Context, opts authkit.SignOutOptions) error
	Dispose()
}

// Loader builds and initializes the session for a page load at href.
type Loader func(ctx context.Context, href string) (Session, error)

type Handlers struct {
	config *config.Config
	load   Loader
	logger logging.Logger

	mu      sync.Mutex
	current Session
}

// New returns handlers around an already loaded session.
func New(cfg *config.Config, current Session, load Loader, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		config:  cfg,
		load:    load,
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
		current: current,
	}
}

func (h *Handlers) session() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// replace swaps in next and disposes the previous session.
func (h *Handlers) replace(next Session) {
	h.mu.Lock()
	previous := h.current
	h.current = next
	h.mu.Unlock()

	if previous != nil && previous != next {
		previous.Dispose()
	}
}

// Close disposes the current session.
func (h *Handlers) Close() {
	h.replace(nil)
}
