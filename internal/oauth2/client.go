package oauth2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authkit-session/internal/circuitbreaker"
	"authkit-session/internal/common/errors"
	commonhttp "authkit-session/internal/common/http"
	"authkit-session/internal/common/logging"
)

const (
	// DefaultHostname is the hosted login service API host.
	DefaultHostname = "api.workos.com"

	authenticatePath = "/user_management/authenticate"
	maxErrorBody     = 64 << 10
)

// BaseURL builds the API base URL. A zero port leaves the scheme default.
func BaseURL(hostname string, https bool, port int) string {
	if hostname == "" {
		hostname = DefaultHostname
	}
	scheme := "https"
	if !https {
		scheme = "http"
	}
	if port > 0 {
		hostname = net.JoinHostPort(hostname, strconv.Itoa(port))
	}
	return scheme + "://" + hostname
}

// Config configures a Client.
type Config struct {
	// ClientID is the application's client identifier. Required.
	ClientID string
	// BaseURL is the API base, e.g. https://api.workos.com. Defaults to DefaultHostname over https.
	BaseURL string
	// HTTPClient performs the requests. It should carry a cookie jar when the
	// session cookie is the refresh credential.
	HTTPClient *http.Client
	// Breaker guards the authenticate endpoint. Defaults to circuitbreaker.AuthAPIConfig.
	Breaker *circuitbreaker.GoBreakerAdapter
	Logger  logging.Logger
}

// Client is the HTTP Authenticator.
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.GoBreakerAdapter
	logger     logging.Logger
}

var _ Authenticator = (*Client)(nil)

// NewClient creates a Client. It does no network I/O.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.NoClientIDError()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL(DefaultHostname, true, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = commonhttp.NewHTTPClient(
			commonhttp.WithTimeout(30*time.Second),
			commonhttp.WithCookieJar(commonhttp.NewCookieJar()),
		)
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewGoBreaker("authkit-authenticate", circuitbreaker.AuthAPIConfig, cfg.Logger)
	}

	return &Client{
		clientID:   cfg.ClientID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		breaker:    cfg.Breaker,
		logger:     cfg.Logger,
	}, nil
}

// ClientID returns the configured client identifier.
func (c *Client) ClientID() string {
	return c.clientID
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type codeGrant struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

type refreshGrant struct {
	ClientID       string `json:"client_id"`
	GrantType      string `json:"grant_type"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

// ExchangeCode trades an authorization code and its PKCE verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, req CodeExchange) (*AuthenticationResponse, error) {
	if req.Code == "" || req.CodeVerifier == "" {
		return nil, errors.ValidationError("code and code verifier are required")
	}

	body := codeGrant{
		ClientID:     c.clientID,
		GrantType:    "authorization_code",
		Code:         req.Code,
		CodeVerifier: req.CodeVerifier,
	}
	return c.authenticate(ctx, body, errors.CodeExchangeError)
}

// ExchangeRefreshToken trades a refresh token, or the session cookie when
// UseCookie is set, for a fresh session scoped to OrganizationID.
func (c *Client) ExchangeRefreshToken(ctx context.Context, req RefreshExchange) (*AuthenticationResponse, error) {
	body := refreshGrant{
		ClientID:       c.clientID,
		GrantType:      "refresh_token",
		OrganizationID: req.OrganizationID,
	}
	if !req.UseCookie {
		body.RefreshToken = req.RefreshToken
	}
	return c.authenticate(ctx, body, errors.RefreshError)
}

// authenticate posts body and decodes the session. reject builds the error
// for a credential the provider refused.
func (c *Client) authenticate(ctx context.Context, body interface{}, reject func(string) *errors.AppError) (*AuthenticationResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.InternalError("failed to encode authenticate request", err)
	}

	var result *AuthenticationResponse
	err = c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authenticatePath, bytes.NewReader(payload))
		if err != nil {
			return errors.InternalError("failed to create authenticate request", err)
		}
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errors.ConnectionError("authenticate request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return c.statusError(resp, reject)
		}

		var decoded AuthenticationResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return errors.InternalError("failed to decode authenticate response", err)
		}
		if decoded.AccessToken == "" {
			return errors.InternalError("authenticate response has no access token", nil)
		}
		result = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) statusError(resp *http.Response, reject func(string) *errors.AppError) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var decoded errorResponse
	_ = json.Unmarshal(raw, &decoded)

	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	if retryable {
		c.logger.Warn("Identity provider unavailable",
			logging.Field{Key: "status", Value: resp.StatusCode},
			logging.Field{Key: "error", Value: decoded.Error},
		)
		return errors.ConnectionError(fmt.Sprintf("authenticate request failed with status %d", resp.StatusCode), nil).
			WithContext("status", resp.StatusCode)
	}

	description := decoded.ErrorDescription
	if description == "" {
		description = decoded.Message
	}
	if description == "" {
		description = fmt.Sprintf("authenticate request failed with status %d", resp.StatusCode)
	}

	rejection := reject(description).WithContext("status", resp.StatusCode)
	if decoded.Error != "" {
		rejection = rejection.WithCode(decoded.Error)
	}
	return rejection
}
