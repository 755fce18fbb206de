package oauth2

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authkit-session/internal/common/errors"
)

// AccessTokenClaims are the claims carried by a session access token.
type AccessTokenClaims struct {
	SessionID      string   `json:"sid"`
	OrganizationID string   `json:"org_id,omitempty"`
	Role           string   `json:"role,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
	FeatureFlags   []string `json:"feature_flags,omitempty"`
	jwt.RegisteredClaims
}

// Lifetime is exp - iat, the token lifetime as stated by the issuer. It is
// zero when either claim is missing.
func (c *AccessTokenClaims) Lifetime() time.Duration {
	if c.ExpiresAt == nil || c.IssuedAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(c.IssuedAt.Time)
}

// DecodeAccessToken reads the claims of token without verifying its signature.
func DecodeAccessToken(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.InternalError("failed to decode access token", err)
	}
	return claims, nil
}
