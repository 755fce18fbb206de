package oauth2

import (
	xoauth2 "golang.org/x/oauth2"
)

// ChallengeMethodS256 is the only PKCE method this package produces.
const ChallengeMethodS256 = "S256"

// PKCE is a proof key pair for one authorization request.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewPKCE generates a 32 byte random verifier and its S256 challenge.
func NewPKCE() PKCE {
	verifier := xoauth2.GenerateVerifier()
	return PKCE{
		Verifier:  verifier,
		Challenge: xoauth2.S256ChallengeFromVerifier(verifier),
		Method:    ChallengeMethodS256,
	}
}
