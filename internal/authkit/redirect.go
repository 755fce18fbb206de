package authkit

import (
	"context"
	"encoding/json"
	"net/http"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/session"
)

// SignInOptions customise the hosted login page.
type SignInOptions struct {
	InvitationToken    string
	LoginHint          string
	OrganizationID     string
	PasswordResetToken string
	// State is JSON encoded into the state parameter and handed back to the
	// redirect callback.
	State interface{}
	// Deprecated: login initiation endpoints no longer need to pass context.
	Context string
}

// SignOutOptions control SignOut.
type SignOutOptions struct {
	// ReturnTo is where the provider sends the user after logout. Without a
	// session it is also the fallback destination.
	ReturnTo string
	// Background sends the logout request instead of navigating to it.
	Background bool
}

// GetSignInURL returns an authorize URL for the sign-in screen. A fresh PKCE
// verifier is stored in tab storage for the callback.
func (c *Client) GetSignInURL(ctx context.Context, opts SignInOptions) (string, error) {
	return c.authorizationURL(ctx, opts, "")
}

// GetSignUpURL is GetSignInURL for the sign-up screen.
func (c *Client) GetSignUpURL(ctx context.Context, opts SignInOptions) (string, error) {
	return c.authorizationURL(ctx, opts, oauth2.ScreenHintSignUp)
}

// SignIn navigates to the sign-in screen.
func (c *Client) SignIn(ctx context.Context, opts SignInOptions) error {
	u, err := c.GetSignInURL(ctx, opts)
	if err != nil {
		return err
	}
	c.window.Navigate(u)
	return nil
}

// SignUp navigates to the sign-up screen.
func (c *Client) SignUp(ctx context.Context, opts SignInOptions) error {
	u, err := c.GetSignUpURL(ctx, opts)
	if err != nil {
		return err
	}
	c.window.Navigate(u)
	return nil
}

func (c *Client) authorizationURL(ctx context.Context, opts SignInOptions, screenHint string) (string, error) {
	var state string
	if opts.State != nil {
		raw, err := json.Marshal(opts.State)
		if err != nil {
			return "", errors.ValidationError("sign in state must be JSON encodable")
		}
		state = string(raw)
	}

	pkce := oauth2.NewPKCE()
	if err := c.window.SessionStorage().Set(ctx, session.KeyCodeVerifier, pkce.Verifier); err != nil {
		return "", err
	}

	return oauth2.AuthorizationURL(c.baseURL, c.clientID, oauth2.AuthorizationOptions{
		RedirectURI:        c.redirectURI,
		CodeVerifier:       pkce.Verifier,
		OrganizationID:     opts.OrganizationID,
		LoginHint:          opts.LoginHint,
		InvitationToken:    opts.InvitationToken,
		PasswordResetToken: opts.PasswordResetToken,
		ScreenHint:         screenHint,
		State:              state,
		Context:            opts.Context,
	})
}

// SwitchToOrganization refreshes the session into organizationID. When the
// provider refuses, the user is sent to sign in to that organization instead.
func (c *Client) SwitchToOrganization(ctx context.Context, organizationID string, signInOpts SignInOptions) error {
	if organizationID == "" {
		return errors.ValidationError("organization id is required")
	}

	_, err := c.RefreshSession(ctx, organizationID)
	if err == nil {
		return nil
	}
	if errors.IsType(err, errors.ErrTypeRefresh) {
		signInOpts.OrganizationID = organizationID
		return c.SignIn(ctx, signInOpts)
	}
	return err
}

// SignOut ends the session at the provider and forgets it locally.
//
// Without an access token it fails with a no_session AppError, unless
// ReturnTo is set, in which case it goes there (or does nothing in the
// background mode).
func (c *Client) SignOut(ctx context.Context, opts SignOutOptions) error {
	token, ok, err := c.session.AccessToken(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if opts.ReturnTo == "" {
			return errors.NoSessionError("sign out")
		}
		if !opts.Background {
			c.window.Navigate(opts.ReturnTo)
		}
		return nil
	}

	claims, err := oauth2.DecodeAccessToken(token)
	if err != nil {
		return err
	}
	logoutURL := oauth2.LogoutURL(c.baseURL, claims.SessionID, opts.ReturnTo)

	if err := c.session.Clear(ctx); err != nil {
		return err
	}
	if err := c.window.SessionStorage().Delete(ctx, session.KeyOrganizationID); err != nil {
		c.logger.Warn("Failed to forget organization", logging.Err(err))
	}

	if !opts.Background {
		c.window.Navigate(logoutURL)
		return nil
	}

	c.sendLogout(ctx, logoutURL)
	return nil
}

// sendLogout requests the logout URL with the client's cookies. Failures are
// logged only.
func (c *Client) sendLogout(ctx context.Context, logoutURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoutURL, nil)
	if err != nil {
		c.logger.Warn("Failed to send logout request", logging.Err(err))
		return
	}
	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Failed to send logout request", logging.Err(err))
		return
	}
	resp.Body.Close()
}
