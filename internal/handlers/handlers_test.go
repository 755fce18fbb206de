package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"authkit-session/internal/authkit"
	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
	"authkit-session/internal/config"
	"authkit-session/internal/oauth2"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) State() authkit.State {
	return m.Called().Get(0).(authkit.State)
}

func (m *MockSession) GetSignInURL(ctx context.Context, opts authkit.SignInOptions) (string, error) {
	args := m.Called(opts)
	return args.String(0), args.Error(1)
}

func (m *MockSession) GetSignUpURL(ctx context.Context, opts authkit.SignInOptions) (string, error) {
	args := m.Called(opts)
	return args.String(0), args.Error(1)
}

func (m *MockSession) GetAccessToken(ctx context.Context, forceRefresh bool) (string, error) {
	args := m.Called(forceRefresh)
	return args.String(0), args.Error(1)
}

func (m *MockSession) GetUser(ctx context.Context) (*oauth2.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.User), args.Error(1)
}

func (m *MockSession) SwitchToOrganization(ctx context.Context, organizationID string, opts authkit.SignInOptions) error {
	return m.Called(organizationID, opts).Error(0)
}

func (m *MockSession) SignOut(ctx context.Context, opts authkit.SignOutOptions) error {
	return m.Called(opts).Error(0)
}

func (m *MockSession) Dispose() {
	m.Called()
}

func setupRouter(current Session, load Loader) (*mux.Router, *Handlers) {
	cfg := &config.Config{RedirectURI: "http://localhost:3000/callback"}
	h := New(cfg, current, load, logging.NewNopLogger())
	router := mux.NewRouter()
	h.Routes(router)
	return router, h
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestLogin(t *testing.T) {
	session := new(MockSession)
	session.On("GetSignInURL", authkit.SignInOptions{
		LoginHint: "ada@example.com",
		State:     map[string]string{"next": "/billing"},
	}).Return("https://api.workos.com/user_management/authorize?client_id=x", nil)

	router, _ := setupRouter(session, nil)
	rec := serve(router, "GET", "/login?login_hint=ada%40example.com&next=%2Fbilling")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://api.workos.com/user_management/authorize?client_id=x", rec.Header().Get("Location"))
	session.AssertExpectations(t)
}

func TestSignup(t *testing.T) {
	session := new(MockSession)
	session.On("GetSignUpURL", authkit.SignInOptions{}).Return("https://api.workos.com/user_management/authorize?screen_hint=sign-up", nil)

	router, _ := setupRouter(session, nil)
	rec := serve(router, "GET", "/signup")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "screen_hint=sign-up")
}

func TestCallback(t *testing.T) {
	previous := new(MockSession)
	previous.On("Dispose").Return().Once()

	next := new(MockSession)
	next.On("State").Return(authkit.StateAuthenticated)
	next.On("GetUser").Return(&oauth2.User{ID: "user_1", Email: "ada@example.com"}, nil)

	var loadedHref string
	router, h := setupRouter(previous, func(ctx context.Context, href string) (Session, error) {
		loadedHref = href
		return next, nil
	})

	rec := serve(router, "GET", "/callback?code=code_1&state=abc")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000/callback?code=code_1&state=abc", loadedHref)
	assert.Same(t, next, h.session())
	previous.AssertExpectations(t)

	var body struct {
		State string      `json:"state"`
		User  oauth2.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "authenticated", body.State)
	assert.Equal(t, "user_1", body.User.ID)
}

func TestCallback_NotAuthenticated(t *testing.T) {
	previous := new(MockSession)
	previous.On("Dispose").Return()
	next := new(MockSession)
	next.On("State").Return(authkit.StateError)

	router, _ := setupRouter(previous, func(ctx context.Context, href string) (Session, error) {
		return next, nil
	})

	rec := serve(router, "GET", "/callback?code=code_1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		force  bool
		token  string
		err    error
		status int
	}{
		{"fresh", "/token", false, "at_1", nil, http.StatusOK},
		{"forced", "/token?force=true", true, "at_2", nil, http.StatusOK},
		{"login required", "/token", false, "", errors.LoginRequiredError(nil), http.StatusUnauthorized},
		{"lock timeout", "/token", false, "", errors.LockTimeoutError("WORKOS_REFRESH_SESSION", nil), http.StatusServiceUnavailable},
		{"provider down", "/token", false, "", errors.ConnectionError("authenticate request failed", nil), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := new(MockSession)
			session.On("GetAccessToken", tt.force).Return(tt.token, tt.err)

			router, _ := setupRouter(session, nil)
			rec := serve(router, "GET", tt.target)

			assert.Equal(t, tt.status, rec.Code)
			if tt.err == nil {
				assert.JSONEq(t, `{"access_token":"`+tt.token+`"}`, rec.Body.String())
				return
			}

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(errors.GetType(tt.err)), body.Type)
		})
	}
}

func TestToken_LockTimeoutSetsRetryAfter(t *testing.T) {
	session := new(MockSession)
	session.On("GetAccessToken", false).Return("", errors.LockTimeoutError("WORKOS_REFRESH_SESSION", nil))

	router, _ := setupRouter(session, nil)
	rec := serve(router, "GET", "/token")

	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeAcquisitionTimeout, body.Code)
}

func TestUser(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		session := new(MockSession)
		session.On("GetUser").Return(&oauth2.User{ID: "user_1"}, nil)

		router, _ := setupRouter(session, nil)
		rec := serve(router, "GET", "/user")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"user_1"`)
	})

	t.Run("signed out", func(t *testing.T) {
		session := new(MockSession)
		session.On("GetUser").Return(nil, nil)

		router, _ := setupRouter(session, nil)
		rec := serve(router, "GET", "/user")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSwitchOrganization(t *testing.T) {
	t.Run("switched", func(t *testing.T) {
		session := new(MockSession)
		session.On("SwitchToOrganization", "org_2", authkit.SignInOptions{}).Return(nil)
		session.On("State").Return(authkit.StateAuthenticated)

		router, _ := setupRouter(session, nil)
		rec := serve(router, "POST", "/organizations/org_2/switch")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		session.AssertExpectations(t)
	})

	t.Run("refused switch redirects to sign in", func(t *testing.T) {
		signInURL := "https://api.workos.com/user_management/authorize?organization_id=org_2"
		session := new(MockSession)
		session.On("SwitchToOrganization", "org_2", authkit.SignInOptions{LoginHint: "ada@example.com"}).Return(nil)
		session.On("State").Return(authkit.StateError)
		session.On("GetSignInURL", authkit.SignInOptions{LoginHint: "ada@example.com", OrganizationID: "org_2"}).Return(signInURL, nil)

		router, _ := setupRouter(session, nil)
		rec := serve(router, "POST", "/organizations/org_2/switch?login_hint=ada%40example.com")

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, signInURL, rec.Header().Get("Location"))
		session.AssertExpectations(t)
	})

	t.Run("transient failure", func(t *testing.T) {
		session := new(MockSession)
		session.On("SwitchToOrganization", "org_2", authkit.SignInOptions{}).Return(errors.ConnectionError("provider down", nil))

		router, _ := setupRouter(session, nil)
		rec := serve(router, "POST", "/organizations/org_2/switch")

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		session.AssertNotCalled(t, "GetSignInURL", mock.Anything)
	})
}

func TestLogout(t *testing.T) {
	t.Run("background sign out", func(t *testing.T) {
		session := new(MockSession)
		session.On("SignOut", authkit.SignOutOptions{ReturnTo: "http://localhost:3000/", Background: true}).Return(nil)

		router, _ := setupRouter(session, nil)
		rec := serve(router, "POST", "/logout?return_to=http%3A%2F%2Flocalhost%3A3000%2F")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		session.AssertExpectations(t)
	})

	t.Run("no session", func(t *testing.T) {
		session := new(MockSession)
		session.On("SignOut", mock.Anything).Return(errors.NoSessionError("sign out"))

		router, _ := setupRouter(session, nil)
		rec := serve(router, "POST", "/logout")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthCheck(t *testing.T) {
	session := new(MockSession)
	session.On("State").Return(authkit.StateInitial)

	router, _ := setupRouter(session, nil)
	rec := serve(router, "GET", "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","state":"initial"}`, rec.Body.String())
}

func TestClose(t *testing.T) {
	session := new(MockSession)
	session.On("Dispose").Return().Once()

	_, h := setupRouter(session, nil)
	h.Close()
	h.Close()

	session.AssertExpectations(t)
	assert.Nil(t, h.session())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ValidationError("organization id is required")))
	assert.Equal(t, http.StatusUnauthorized, statusFor(errors.RefreshError("rejected")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}
