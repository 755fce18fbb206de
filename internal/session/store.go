// Package session holds the token material of one signed-in session.
//
// The access token, user and computed expiry live in the owning client's
// ephemeral store. The refresh token lives there too, except in development
// mode where it goes to persistent storage so it survives restarts.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"authkit-session/internal/common/errors"
	"authkit-session/internal/oauth2"
	"authkit-session/internal/storage"
)

// Storage keys
const (
	KeyCodeVerifier   = "workos:code-verifier"
	KeyUser           = "workos:user"
	KeyAccessToken    = "workos:access-token"
	KeyRefreshToken   = "workos:refresh-token"
	KeyExpiresAt      = "workos:expires-at"
	KeyOrganizationID = "workos_organization_id"
)

// Options configures a Store.
type Options struct {
	// Memory is the per-client ephemeral store. Defaults to a new MemoryStore.
	Memory storage.Store
	// Persistent receives the refresh token when DevMode is set.
	Persistent storage.Store
	DevMode    bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store reads and writes session data.
type Store struct {
	memory     storage.Store
	persistent storage.Store
	devMode    bool
	now        func() time.Time
}

// NewStore creates a Store. DevMode requires a Persistent store.
func NewStore(opts Options) (*Store, error) {
	if opts.Memory == nil {
		opts.Memory = storage.NewMemoryStore()
	}
	if opts.DevMode && opts.Persistent == nil {
		return nil, errors.ConfigError("development mode requires a persistent store for the refresh token")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		memory:     opts.Memory,
		persistent: opts.Persistent,
		devMode:    opts.DevMode,
		now:        opts.Now,
	}, nil
}

// DevMode reports whether the refresh token is kept in persistent storage.
func (s *Store) DevMode() bool {
	return s.devMode
}

func (s *Store) refreshStore() storage.Store {
	if s.devMode {
		return s.persistent
	}
	return s.memory
}

// Set stores the session from resp. The expiry is computed as now plus the
// token's exp - iat, so a skewed local clock does not shorten or extend the
// session.
func (s *Store) Set(ctx context.Context, resp *oauth2.AuthenticationResponse) error {
	claims, err := oauth2.DecodeAccessToken(resp.AccessToken)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(claims.Lifetime())

	user, err := json.Marshal(resp.User)
	if err != nil {
		return errors.InternalError("failed to encode user", err)
	}

	if err := s.memory.Set(ctx, KeyUser, string(user)); err != nil {
		return err
	}
	if err := s.memory.Set(ctx, KeyAccessToken, resp.AccessToken); err != nil {
		return err
	}
	if err := s.refreshStore().Set(ctx, KeyRefreshToken, resp.RefreshToken); err != nil {
		return err
	}
	return s.memory.Set(ctx, KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10))
}

// Clear removes the session, including the refresh token.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{KeyUser, KeyAccessToken, KeyExpiresAt} {
		if err := s.memory.Delete(ctx, key); err != nil {
			return err
		}
	}
	return s.refreshStore().Delete(ctx, KeyRefreshToken)
}

// AccessToken returns the current access token.
func (s *Store) AccessToken(ctx context.Context) (string, bool, error) {
	return s.memory.Get(ctx, KeyAccessToken)
}

// RefreshToken returns the refresh token from its mode-dependent location.
func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	return s.refreshStore().Get(ctx, KeyRefreshToken)
}

// ExpiresAt returns the locally computed expiry of the access token.
func (s *Store) ExpiresAt(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := s.memory.Get(ctx, KeyExpiresAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, errors.InternalError("invalid stored expiry", err)
	}
	return time.UnixMilli(ms), true, nil
}

// User returns the signed-in user, or nil.
func (s *Store) User(ctx context.Context) (*oauth2.User, error) {
	raw, ok, err := s.memory.Get(ctx, KeyUser)
	if err != nil || !ok {
		return nil, err
	}
	var user oauth2.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, errors.InternalError("invalid stored user", err)
	}
	return &user, nil
}

// Claims decodes the current access token. It returns nil without an error
// when there is no access token.
func (s *Store) Claims(ctx context.Context) (*oauth2.AccessTokenClaims, error) {
	token, ok, err := s.AccessToken(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return oauth2.DecodeAccessToken(token)
}
