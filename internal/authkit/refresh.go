package authkit

import (
	"context"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/locks"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/session"
)

// RefreshSession exchanges the refresh token for a new session scoped to
// organizationID. When empty, the current token's organization is kept, or
// before the first token the organization remembered in tab storage is used.
//
// While an exchange is in flight every caller waits on it and gets its
// result; no second request is made. The exchange itself runs under
// RefreshLockName and is not cancelled when a waiting caller gives up.
//
// Failure handling depends on the error:
//   - lock timeout: the state before the attempt is restored and nothing is cleared
//   - refresh rejection: the session is cleared, the state becomes StateError
//     and the refresh failure hook fires unless this was the first attempt
//   - anything else: the state returns to StateAuthenticated so later calls retry
//
// A refresh abandoned by Dispose restores the state before the attempt.
func (c *Client) RefreshSession(ctx context.Context, organizationID string) (*oauth2.AuthenticationResponse, error) {
	c.mu.Lock()
	if c.state == StateAuthenticating {
		p := c.inflight
		c.mu.Unlock()
		return p.wait(ctx)
	}

	beginning := c.state
	p := newPending()
	c.state = StateAuthenticating
	c.inflight = p
	c.mu.Unlock()

	// detached from the caller, bounded by the client lifetime
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(c.lifetime, cancel)

	go func() {
		defer cancel()
		defer stopAfter()
		c.doRefresh(opCtx, p, organizationID, beginning)
	}()

	return p.wait(ctx)
}

func (c *Client) doRefresh(ctx context.Context, p *pending, organizationID string, beginning State) {
	resp, err := locks.WithLock(ctx, c.locker, RefreshLockName, c.opts.lockTimeout,
		func(ctx context.Context) (*oauth2.AuthenticationResponse, error) {
			orgID := c.resolveOrganization(ctx, organizationID)

			refreshToken, _, err := c.session.RefreshToken(ctx)
			if err != nil {
				return nil, err
			}

			resp, err := c.auth.ExchangeRefreshToken(ctx, oauth2.RefreshExchange{
				RefreshToken:   refreshToken,
				OrganizationID: orgID,
				UseCookie:      c.useCookie(),
			})
			if err != nil {
				return nil, err
			}
			if err := c.session.Set(ctx, resp); err != nil {
				return nil, err
			}
			return resp, nil
		})

	if err == nil {
		c.finish(p, StateAuthenticated)
		c.logger.Debug("Session refreshed", logging.Field{Key: "organization_id", Value: resp.OrganizationID})
		c.notifyRefresh(resp)
		p.resolve(resp, nil)
		return
	}

	if c.lifetime.Err() != nil {
		// disposed mid-flight
		c.finish(p, beginning)
		p.resolve(nil, err)
		return
	}

	switch {
	case errors.IsType(err, errors.ErrTypeLockTimeout):
		c.logger.Warn("Couldn't acquire refresh lock", logging.Field{Key: "lock", Value: errors.LockName(err)})
		c.finish(p, beginning)

	case errors.IsType(err, errors.ErrTypeRefresh):
		if beginning != StateInitial {
			c.logger.Debug("Session refresh rejected", logging.Err(err))
		}
		c.clearSession(ctx)
		c.finish(p, StateError)
		if beginning != StateInitial && c.opts.onRefreshFailure != nil {
			c.opts.onRefreshFailure(RefreshFailureParams{
				SignIn: func(opts SignInOptions) error { return c.SignIn(c.lifetime, opts) },
				Err:    err,
			})
		}

	default:
		if beginning != StateInitial {
			c.logger.Warn("Session refresh failed", logging.Err(err))
		}
		c.finish(p, StateAuthenticated)
	}

	p.resolve(nil, err)
}

// finish moves out of StateAuthenticating if p is still the in-flight exchange.
func (c *Client) finish(p *pending, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != p {
		return
	}
	c.state = next
	c.inflight = nil
}

// resolveOrganization picks the organization to refresh into: the explicit
// argument (remembered in tab storage), else the current token's
// organization, which may be none. The remembered organization is only used
// when there is no access token yet.
func (c *Client) resolveOrganization(ctx context.Context, explicit string) string {
	tab := c.window.SessionStorage()

	if explicit != "" {
		if err := tab.Set(ctx, session.KeyOrganizationID, explicit); err != nil {
			c.logger.Warn("Failed to remember organization", logging.Err(err))
		}
		return explicit
	}

	_, hasToken, err := c.session.AccessToken(ctx)
	if err != nil {
		c.logger.Warn("Failed to read access token", logging.Err(err))
	}
	if hasToken {
		claims, err := c.session.Claims(ctx)
		if err != nil || claims == nil {
			c.logger.Warn("Failed to read access token claims", logging.Err(err))
			return ""
		}
		return claims.OrganizationID
	}

	remembered, _, err := tab.Get(ctx, session.KeyOrganizationID)
	if err != nil {
		c.logger.Warn("Failed to read remembered organization", logging.Err(err))
	}
	return remembered
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Error("Failed to clear session", err)
	}
	if err := c.window.SessionStorage().Delete(ctx, session.KeyOrganizationID); err != nil {
		c.logger.Warn("Failed to forget organization", logging.Err(err))
	}
}

func (c *Client) notifyRefresh(resp *oauth2.AuthenticationResponse) {
	if c.opts.onRefresh != nil {
		c.opts.onRefresh(resp.WithoutRefreshToken())
	}
}
