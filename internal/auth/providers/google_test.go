package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/brizzai/devdash/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	*httptest.Server
	revoked     atomic.Value
	discoveries atomic.Int32
	userInfo    map[string]interface{}
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		f.discoveries.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"issuer":                 f.URL,
			"authorization_endpoint": f.URL + "/o/oauth2/v2/auth",
			"token_endpoint":         f.URL + "/token",
			"userinfo_endpoint":      f.URL + "/v1/userinfo",
			"revocation_endpoint":    f.URL + "/revoke",
			"jwks_uri":               f.URL + "/certs",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"access_token": "ya29.token",
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	})
	mux.HandleFunc("/v1/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, http.StatusOK, f.userInfo)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		f.revoked.Store(r.PostForm.Get("token"))
		w.WriteHeader(http.StatusOK)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGoogle) provider(t *testing.T) *GoogleProvider {
	t.Helper()
	return NewGoogleProvider(&config.ProviderConfig{
		Name:        config.ProviderGoogle,
		ClientID:    "g-client",
		RedirectURL: "http://localhost:3000/auth/callback",
		IssuerURL:   f.URL,
	}, f.Client())
}

func TestGoogleDiscovery(t *testing.T) {
	f := newFakeGoogle(t)
	p := f.provider(t)
	assert.Equal(t, int32(0), f.discoveries.Load(), "construction does no network I/O")

	u, err := url.Parse(p.AuthorizationURL())
	require.NoError(t, err)
	assert.Equal(t, "/o/oauth2/v2/auth", u.Path)
	assert.Equal(t, "openid profile email", u.Query().Get("scope"))

	e, err := p.discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.URL+"/v1/userinfo", e.userInfoURL)
	assert.Equal(t, f.URL+"/revoke", e.revokeURL)
	assert.Equal(t, int32(1), f.discoveries.Load(), "endpoints are cached")
}

func TestGoogleDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewGoogleProvider(&config.ProviderConfig{IssuerURL: srv.URL}, srv.Client())

	assert.Empty(t, p.AuthorizationURL())

	_, err := p.ExchangeCode(context.Background(), "4/0Adeu")
	var ee *ExchangeError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, KindUnreachable, ee.Kind)

	_, err = p.FetchProfile(context.Background(), "ya29.token")
	var pe *ProfileError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindUnreachable, pe.Kind)
	assert.False(t, IsUnauthorized(err), "an unreachable issuer must not end the session")

	assert.Error(t, p.Revoke(context.Background(), "ya29.token"))
	assert.NoError(t, p.Revoke(context.Background(), ""))
}

func TestGoogleDiscoveryRetriesAfterFailure(t *testing.T) {
	var down atomic.Bool
	down.Store(true)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/certs",
		})
	}))
	defer srv.Close()

	p := NewGoogleProvider(&config.ProviderConfig{ClientID: "g-client", IssuerURL: srv.URL}, srv.Client())

	assert.Empty(t, p.AuthorizationURL())
	assert.Nil(t, p.endpoints, "failures are not cached")

	down.Store(false)
	u, err := url.Parse(p.AuthorizationURL())
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
}

func TestGoogleExchangeAndProfile(t *testing.T) {
	f := newFakeGoogle(t)
	f.userInfo = map[string]interface{}{
		"sub":     "1098",
		"name":    "Ada Lovelace",
		"email":   "ada@example.com",
		"picture": "https://example.com/ada.png",
	}
	p := f.provider(t)

	ex, err := p.ExchangeCode(context.Background(), "4/0Adeu")
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", ex.Session.Token)
	assert.False(t, ex.Session.ExpiresAt.IsZero())

	profile, err := p.FetchProfile(context.Background(), ex.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, "1098", profile.ID)
	assert.Equal(t, "ada@example.com", profile.Handle)
	assert.Equal(t, "Ada Lovelace", profile.Name())
	assert.Nil(t, profile.FollowerCount)

	_, err = p.FetchProfile(context.Background(), "expired")
	assert.True(t, IsUnauthorized(err))
}

func TestGoogleHandleFallsBackToSubject(t *testing.T) {
	p, err := decodeGoogleUserInfo([]byte(`{"sub":"77"}`))
	require.NoError(t, err)
	assert.Equal(t, "77", p.Handle)

	p, err = decodeGoogleUserInfo([]byte(`{"sub":"77","preferred_username":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Handle)
}

func TestGoogleRevoke(t *testing.T) {
	f := newFakeGoogle(t)
	require.NoError(t, f.provider(t).Revoke(context.Background(), "ya29.token"))
	assert.Equal(t, "ya29.token", f.revoked.Load())
}
