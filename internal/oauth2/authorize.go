package oauth2

import (
	"net/url"

	xoauth2 "golang.org/x/oauth2"

	"authkit-session/internal/common/errors"
)

const (
	// ProviderAuthKit is the hosted login page provider.
	ProviderAuthKit = "authkit"

	authorizePath = "/user_management/authorize"
	logoutPath    = "/user_management/sessions/logout"
)

// Screen hints understood by the hosted login page.
const (
	ScreenHintSignIn = "sign-in"
	ScreenHintSignUp = "sign-up"
)

// AuthorizationOptions are the query parameters of an authorize URL.
type AuthorizationOptions struct {
	RedirectURI  string
	CodeVerifier string
	// Provider defaults to ProviderAuthKit.
	Provider           string
	ConnectionID       string
	OrganizationID     string
	DomainHint         string
	LoginHint          string
	ScreenHint         string
	State              string
	InvitationToken    string
	PasswordResetToken string
	// Context is accepted by older login initiation endpoints.
	//
	// Deprecated: no longer required by the hosted login page.
	Context string
}

// AuthorizationURL builds {base}/user_management/authorize for c.
func (c *Client) AuthorizationURL(opts AuthorizationOptions) (string, error) {
	return AuthorizationURL(c.baseURL, c.clientID, opts)
}

// LogoutURL builds the logout URL for c.
func (c *Client) LogoutURL(sessionID, returnTo string) string {
	return LogoutURL(c.baseURL, sessionID, returnTo)
}

// AuthorizationURL builds the authorize URL with a sorted query. When
// CodeVerifier is set the S256 challenge derived from it is included.
func AuthorizationURL(baseURL, clientID string, opts AuthorizationOptions) (string, error) {
	provider := opts.Provider
	if provider == "" {
		provider = ProviderAuthKit
	}
	if opts.ScreenHint != "" && provider != ProviderAuthKit {
		return "", errors.ValidationError("'screenHint' is only supported for 'authkit' provider").
			WithContext("provider", provider)
	}

	config := xoauth2.Config{
		ClientID:    clientID,
		RedirectURL: opts.RedirectURI,
		Endpoint: xoauth2.Endpoint{
			AuthURL: baseURL + authorizePath,
		},
	}

	params := []xoauth2.AuthCodeOption{
		xoauth2.SetAuthURLParam("provider", provider),
	}
	optional := map[string]string{
		"connection_id":        opts.ConnectionID,
		"organization_id":      opts.OrganizationID,
		"domain_hint":          opts.DomainHint,
		"login_hint":           opts.LoginHint,
		"screen_hint":          opts.ScreenHint,
		"invitation_token":     opts.InvitationToken,
		"password_reset_token": opts.PasswordResetToken,
		"context":              opts.Context,
	}
	for key, value := range optional {
		if value != "" {
			params = append(params, xoauth2.SetAuthURLParam(key, value))
		}
	}
	if opts.CodeVerifier != "" {
		params = append(params, xoauth2.S256ChallengeOption(opts.CodeVerifier))
	}

	return config.AuthCodeURL(opts.State, params...), nil
}

// LogoutURL builds {base}/user_management/sessions/logout for sessionID.
func LogoutURL(baseURL, sessionID, returnTo string) string {
	u := baseURL + logoutPath + "?session_id=" + url.QueryEscape(sessionID)
	if returnTo != "" {
		u += "&return_to=" + url.QueryEscape(returnTo)
	}
	return u
}
