package oauth2

import "context"

// User is the profile returned alongside a session.
type User struct {
	Object            string `json:"object"`
	ID                string `json:"id"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	LastSignInAt      string `json:"last_sign_in_at,omitempty"`
	ExternalID        string `json:"external_id,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// Impersonator identifies an administrator acting as the user.
type Impersonator struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// AuthenticationResponse is the normalized result of a code or refresh token exchange.
type AuthenticationResponse struct {
	User                 User          `json:"user"`
	AccessToken          string        `json:"access_token"`
	RefreshToken         string        `json:"refresh_token"`
	OrganizationID       string        `json:"organization_id,omitempty"`
	AuthenticationMethod string        `json:"authentication_method,omitempty"`
	Impersonator         *Impersonator `json:"impersonator,omitempty"`
}

// OnRefreshResponse is an AuthenticationResponse without the refresh token.
// It is what application hooks get to see.
type OnRefreshResponse struct {
	User                 User
	AccessToken          string
	OrganizationID       string
	AuthenticationMethod string
	Impersonator         *Impersonator
}

// WithoutRefreshToken drops the refresh token.
func (r *AuthenticationResponse) WithoutRefreshToken() OnRefreshResponse {
	return OnRefreshResponse{
		User:                 r.User,
		AccessToken:          r.AccessToken,
		OrganizationID:       r.OrganizationID,
		AuthenticationMethod: r.AuthenticationMethod,
		Impersonator:         r.Impersonator,
	}
}

// CodeExchange holds the inputs of an authorization_code grant.
type CodeExchange struct {
	Code         string
	CodeVerifier string
	UseCookie    bool
}

// RefreshExchange holds the inputs of a refresh_token grant. RefreshToken is
// not sent when UseCookie is set.
type RefreshExchange struct {
	RefreshToken   string
	OrganizationID string
	UseCookie      bool
}

// Authenticator exchanges credentials for sessions with the identity provider.
type Authenticator interface {
	ExchangeCode(ctx context.Context, req CodeExchange) (*AuthenticationResponse, error)
	ExchangeRefreshToken(ctx context.Context, req RefreshExchange) (*AuthenticationResponse, error)
}
