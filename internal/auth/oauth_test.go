package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tokenstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements providers.Provider for testing
type mockProvider struct {
	exchangeErr error
	revoked     string
	unavailable bool
}

func (m *mockProvider) AuthorizationURL() string {
	if m.unavailable {
		return ""
	}
	return "https://github.example/login/oauth/authorize?client_id=abc"
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code string) (*providers.Exchange, error) {
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	return &providers.Exchange{Session: models.Session{Token: "tok-" + code}}, nil
}

func (m *mockProvider) FetchProfile(ctx context.Context, token string) (*models.UserProfile, error) {
	return &models.UserProfile{ID: "1", Handle: "octocat"}, nil
}

func (m *mockProvider) Revoke(ctx context.Context, token string) error {
	m.revoked = token
	return nil
}

var testRoutes = session.Routes{Login: "/login", Dashboard: "/dashboard"}

func newTestService(t *testing.T, provider *mockProvider) (*Service, *tokenstore.Store) {
	t.Helper()
	cfg := &config.Config{
		Provider: config.ProviderConfig{RedirectURL: "http://localhost:3000/auth/callback"},
	}
	store := tokenstore.New(tokenstore.NewMemoryBackend())
	nav := session.NewLogNavigator()
	resolver := session.NewResolver(provider, store, profile.NewCache(store, provider), nav, testRoutes, time.Second)
	guard := session.NewGuard(store, testRoutes, nav)
	logout := session.NewLogout(store, provider, nav, testRoutes, time.Second)
	return NewService(cfg, provider, resolver, guard, logout), store
}

func newRouter(s *Service) http.Handler {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	r.With(s.RequireSession()).Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("protected"))
	})
	r.With(s.RequireSessionAPI()).Get("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func redirectTarget(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u.Path, u.Query().Get("notice")
}

func TestNewService(t *testing.T) {
	provider := &mockProvider{}
	service, _ := newTestService(t, provider)
	assert.NotNil(t, service.handler)
	assert.Same(t, provider, service.GetProvider())
}

func TestStartRedirectsToProvider(t *testing.T) {
	service, _ := newTestService(t, &mockProvider{})
	rec := serve(newRouter(service), http.MethodGet, "/auth/start")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.example/login/oauth/authorize?client_id=abc", rec.Header().Get("Location"))
}

func TestStartWithProviderUnavailable(t *testing.T) {
	service, _ := newTestService(t, &mockProvider{unavailable: true})
	path, notice := redirectTarget(t, serve(newRouter(service), http.MethodGet, "/auth/start"))

	assert.Equal(t, "/login", path)
	assert.NotEmpty(t, notice)
}

func TestCallbackRoutes(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		exchangeErr error
		wantPath    string
		wantToken   string
		wantNotice  bool
	}{
		{name: "code", query: "?code=abc", wantPath: "/dashboard", wantToken: "tok-abc"},
		{name: "access denied", query: "?error=access_denied", wantPath: "/login", wantNotice: true},
		{name: "no params", query: "", wantPath: "/login", wantNotice: true},
		{
			name:        "exchange fails",
			query:       "?code=abc",
			exchangeErr: &providers.ExchangeError{Kind: providers.KindRejected, Status: 500, Err: errors.New("boom")},
			wantPath:    "/login",
			wantNotice:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestService(t, &mockProvider{exchangeErr: tt.exchangeErr})
			rec := serve(newRouter(service), http.MethodGet, "/auth/callback"+tt.query)

			path, notice := redirectTarget(t, rec)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantNotice, notice != "")
			assert.Equal(t, tt.wantToken, store.Token())
		})
	}
}

func TestRequireSession(t *testing.T) {
	service, store := newTestService(t, &mockProvider{})
	router := newRouter(service)

	path, notice := redirectTarget(t, serve(router, http.MethodGet, "/dashboard"))
	assert.Equal(t, "/login", path)
	assert.NotEmpty(t, notice)

	rec := serve(router, http.MethodGet, "/api/profile")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	require.NoError(t, store.SetSession(models.Session{Token: "tok"}))
	rec = serve(router, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "protected", rec.Body.String())
}

func TestLogoutRoute(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		fetchSite   string
		wantStatus  int
		wantCleared bool
	}{
		{name: "post", method: http.MethodPost, wantStatus: http.StatusFound, wantCleared: true},
		{name: "same-origin post", method: http.MethodPost, fetchSite: "same-origin", wantStatus: http.StatusFound, wantCleared: true},
		{name: "get is not a sign-out", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed},
		{name: "cross-site post", method: http.MethodPost, fetchSite: "cross-site", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{}
			service, store := newTestService(t, provider)
			require.NoError(t, store.SetSession(models.Session{Token: "tok"}))

			req := httptest.NewRequest(tt.method, "/auth/logout", nil)
			if tt.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			}
			rec := httptest.NewRecorder()
			newRouter(service).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if !tt.wantCleared {
				assert.Equal(t, "tok", store.Token())
				assert.Empty(t, provider.revoked)
				return
			}
			path, _ := redirectTarget(t, rec)
			assert.Equal(t, "/login", path)
			assert.Empty(t, store.Token())
			assert.Equal(t, "tok", provider.revoked)
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	service, store := newTestService(t, &mockProvider{})
	router := newRouter(service)

	var body map[string]interface{}
	rec := serve(router, http.MethodGet, "/api/session")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["authorized"])

	require.NoError(t, store.SetSession(models.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}))
	rec = serve(router, http.MethodGet, "/api/session")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authorized"])
	assert.Contains(t, body["expiry"], "expires in")
	assert.NotEmpty(t, body["expires_at"])
}
