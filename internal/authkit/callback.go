package authkit

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"authkit-session/internal/browser"
	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/session"
)

const missingVerifierMessage = `Couldn't exchange code.

An authorization_code was supplied for a login which did not originate at the application. This could happen for various reasons:

* This could have been an attempted Login CSRF attack. You were not affected.
* The developer may not have configured a Login Initiation endpoint.`

// Initialize brings a new client to life. It does nothing unless the state is
// StateInitial.
//
// On the redirect target with a code parameter it runs HandleCallback.
// Otherwise, when there is evidence of a session (the session cookie, or a
// persisted refresh token in development mode), it refreshes silently; that
// refresh failing is the normal logged-out case and is not reported.
func (c *Client) Initialize(ctx context.Context) error {
	if c.State() != StateInitial {
		return nil
	}

	if c.isRedirectCallback() {
		return c.HandleCallback(ctx)
	}

	hasSession, err := c.hasSessionEvidence(ctx)
	if err != nil {
		return err
	}
	if !hasSession {
		return nil
	}

	if _, err := c.RefreshSession(ctx, ""); err != nil {
		c.logger.Debug("No session to resume", logging.Err(err))
		return nil
	}
	c.scheduleAutomaticRefresh()
	return nil
}

func (c *Client) hasSessionEvidence(ctx context.Context) (bool, error) {
	if browser.HasCookie(c.window, SessionCookie) {
		return true, nil
	}
	if !c.devMode {
		return false, nil
	}
	_, ok, err := c.session.RefreshToken(ctx)
	return ok, err
}

// isRedirectCallback reports whether the window is on the redirect path, with
// or without a trailing slash, and carries a code parameter.
func (c *Client) isRedirectCallback() bool {
	current, err := url.Parse(c.window.Href())
	if err != nil || !current.Query().Has("code") {
		return false
	}
	redirect, err := url.Parse(c.redirectURI)
	if err != nil {
		return false
	}
	redirectPath := redirect.Path
	if redirectPath == "" {
		redirectPath = "/"
	}
	currentPath := current.Path
	if currentPath == "" {
		currentPath = "/"
	}
	return currentPath == redirectPath || currentPath == strings.TrimSuffix(redirectPath, "/")+"/"
}

// HandleCallback completes a login from the redirect URL. It only runs from
// StateInitial.
//
// Without a stored PKCE verifier the login did not start here: the code is
// not exchanged and the state becomes StateError. In every case the code and
// state parameters are removed from the URL and the verifier is discarded.
// Exchange failures are logged and leave the client in StateError; they are
// not returned.
func (c *Client) HandleCallback(ctx context.Context) error {
	current, err := url.Parse(c.window.Href())
	if err != nil {
		return errors.ValidationError("invalid window location").WithContext("href", c.window.Href())
	}
	query := current.Query()
	code := query.Get("code")

	c.mu.Lock()
	if c.state != StateInitial {
		c.mu.Unlock()
		return nil
	}

	tab := c.window.SessionStorage()
	defer c.cleanupCallback(ctx, current)

	verifier, ok, err := tab.Get(ctx, session.KeyCodeVerifier)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	if code == "" {
		c.mu.Unlock()
		return nil
	}

	if !ok || verifier == "" {
		c.state = StateError
		c.mu.Unlock()
		c.logger.Error(missingVerifierMessage, nil)
		return nil
	}

	p := newPending()
	c.state = StateAuthenticating
	c.inflight = p
	c.mu.Unlock()

	resp, err := c.auth.ExchangeCode(ctx, oauth2.CodeExchange{
		Code:         code,
		CodeVerifier: verifier,
		UseCookie:    c.useCookie(),
	})
	if err == nil {
		err = c.session.Set(ctx, resp)
	}
	if err != nil {
		c.logger.Error("Code exchange failed", err)
		c.finish(p, StateError)
		p.resolve(nil, err)
		return nil
	}

	c.finish(p, StateAuthenticated)
	c.scheduleAutomaticRefresh()
	c.notifyRefresh(resp)
	if c.opts.onRedirectCallback != nil {
		c.opts.onRedirectCallback(RedirectParams{
			State:                  c.decodeState(query.Get("state")),
			AuthenticationResponse: *resp,
		})
	}
	p.resolve(resp, nil)
	return nil
}

func (c *Client) decodeState(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var state interface{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		c.logger.Warn("Ignoring undecodable redirect state", logging.Err(err))
		return nil
	}
	return state
}

// cleanupCallback drops the one-time code from the address bar and history
// and discards the verifier.
func (c *Client) cleanupCallback(ctx context.Context, current *url.URL) {
	clean := *current
	query := clean.Query()
	query.Del("code")
	query.Del("state")
	clean.RawQuery = query.Encode()
	c.window.ReplaceURL(clean.String())

	if err := c.window.SessionStorage().Delete(ctx, session.KeyCodeVerifier); err != nil {
		c.logger.Warn("Failed to discard code verifier", logging.Err(err))
	}
}
