package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, "authkit-session", config.UserAgent)
	assert.Nil(t, config.Transport)
	assert.Nil(t, config.Jar)
}

func TestOptions(t *testing.T) {
	config := DefaultClientConfig()
	jar := NewCookieJar()

	WithTimeout(5 * time.Second)(&config)
	WithCookieJar(jar)(&config)
	WithUserAgent("test-agent")(&config)

	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, jar, config.Jar)
	assert.Equal(t, "test-agent", config.UserAgent)
}

func TestNewHTTPClient_SetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(WithUserAgent("authkit-test"))
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "authkit-test", got)
}

func TestNewHTTPClient_CookieJarCarriesCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "wos-session", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("wos-session"); err == nil && c.Value == "abc" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(WithCookieJar(NewCookieJar()))

	resp, err := client.Get(server.URL + "/set")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(server.URL + "/check")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
