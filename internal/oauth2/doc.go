// Package oauth2 talks to the hosted login service: it exchanges
// authorization codes and refresh tokens for sessions, builds the authorize
// and logout URLs, and decodes access token claims.
//
// # Overview
//
// The session manager in package authkit depends only on the Authenticator
// interface. Client is the HTTP implementation used in production; tests
// substitute a fake.
//
// # Wire format
//
// Both grants POST a JSON body to {base}/user_management/authenticate:
//
//	{"client_id": "...", "grant_type": "authorization_code", "code": "...", "code_verifier": "..."}
//	{"client_id": "...", "grant_type": "refresh_token", "refresh_token": "...", "organization_id": "..."}
//
// When the session rides on an HTTP-only cookie the refresh token is omitted
// from the body and the cookie jar on the underlying http.Client supplies it.
//
// # Errors
//
// A 4xx answer is a credential rejection: ExchangeRefreshToken returns an
// errors.ErrTypeRefresh AppError and ExchangeCode an errors.ErrTypeCodeExchange
// one, both carrying the provider's error_description. Anything else that goes
// wrong (transport failure, 5xx, 429, undecodable body) is a connection or
// internal error. Only the latter count against the circuit breaker.
//
// # Usage
//
//	client, err := oauth2.NewClient(oauth2.Config{
//	    ClientID: "client_01HXRMBQ9BJ3E7QSTQ9X2PHVB7",
//	    BaseURL:  oauth2.BaseURL("api.workos.com", true, 0),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pkce, err := oauth2.NewPKCE()
//	authorizeURL, err := client.AuthorizationURL(oauth2.AuthorizationOptions{
//	    RedirectURI:  "http://localhost:3000/callback",
//	    CodeVerifier: pkce.Verifier,
//	})
//
//	// after the redirect back
//	resp, err := client.ExchangeCode(ctx, oauth2.CodeExchange{
//	    Code:         code,
//	    CodeVerifier: pkce.Verifier,
//	})
//
// Access tokens are decoded without signature verification. They are only
// read for their session id, organization id and lifetime; the hosted service
// remains the authority on whether a token is valid.
package oauth2
