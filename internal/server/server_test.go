package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/devdash/internal/app"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/dashboard"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/requester"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	profileErr error
}

func (f *fakeProvider) AuthorizationURL() string { return "https://provider.example/authorize" }

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*providers.Exchange, error) {
	return &providers.Exchange{Session: models.Session{Token: "tok-" + code}}, nil
}

func (f *fakeProvider) FetchProfile(ctx context.Context, token string) (*models.UserProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.UserProfile{ID: "1", Handle: "octocat", DisplayName: "Mona <script>"}, nil
}

func (f *fakeProvider) Revoke(ctx context.Context, token string) error { return nil }

type fakeAPI struct {
	err error
}

func (a *fakeAPI) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if a.err != nil {
		return a.err
	}
	return json.Unmarshal([]byte(`[{"name":"hello","full_name":"octocat/hello","html_url":"https://github.com/octocat/hello","stargazers_count":7}]`), out)
}

func newComponents(t *testing.T, provider *fakeProvider, api *fakeAPI) *app.Components {
	t.Helper()
	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Timeout: time.Second},
		Provider: config.ProviderConfig{Name: config.ProviderGitHub, RedirectURL: "http://127.0.0.1:0/auth/callback"},
		Callback: config.CallbackConfig{Watchdog: time.Second},
		Routes:   config.RoutesConfig{Login: "/login", Dashboard: "/dashboard"},
	}
	routes := session.NewRoutes(cfg)
	nav := session.NewLogNavigator()
	store := tokenstore.New(tokenstore.NewMemoryBackend())
	profiles := profile.NewCache(store, provider)
	guard := session.NewGuard(store, routes, nav)

	return &app.Components{
		Config:    cfg,
		Store:     store,
		Provider:  provider,
		Profiles:  profiles,
		Resolver:  session.NewResolver(provider, store, profiles, nav, routes, cfg.Callback.Watchdog),
		Guard:     guard,
		Logout:    session.NewLogout(store, provider, nav, routes, time.Second),
		Dashboard: dashboard.NewService(guard, store, profiles, api, true),
		Routes:    routes,
	}
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexAndLoginRouting(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	h := NewServer(c).Routes()

	rec := get(h, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = get(h, "/login?notice=Sign-in+was+not+completed")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign-in was not completed")
	assert.Contains(t, rec.Body.String(), `href="/auth/start"`)

	require.NoError(t, c.Store.SetSession(models.Session{Token: "tok"}))
	assert.Equal(t, "/dashboard", get(h, "/").Header().Get("Location"))
	assert.Equal(t, "/dashboard", get(h, "/login").Header().Get("Location"))
}

func TestDashboardPage(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	h := NewServer(c).Routes()

	rec := get(h, "/dashboard")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"))

	require.NoError(t, c.Store.SetSession(models.Session{Token: "tok"}))
	rec = get(h, "/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mona &lt;script&gt;")
	assert.Contains(t, body, "octocat/hello")
	assert.Contains(t, body, models.Unprovided, "empty fields render the placeholder")
}

func TestDashboardPageEndsRejectedSession(t *testing.T) {
	provider := &fakeProvider{profileErr: &providers.ProfileError{Kind: providers.KindUnauthorized, Err: errors.New("bad credentials")}}
	c := newComponents(t, provider, &fakeAPI{})
	require.NoError(t, c.Store.SetSession(models.Session{Token: "tok"}))

	rec := get(NewServer(c).Routes(), "/dashboard")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"))
	assert.False(t, c.Guard.IsAuthorized())
}

func TestProfileAPI(t *testing.T) {
	tests := []struct {
		name       string
		signedIn   bool
		profileErr error
		wantStatus int
	}{
		{name: "signed out", wantStatus: http.StatusUnauthorized},
		{name: "ok", signedIn: true, wantStatus: http.StatusOK},
		{
			name:       "token rejected",
			signedIn:   true,
			profileErr: &providers.ProfileError{Kind: providers.KindUnauthorized, Err: errors.New("bad credentials")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider down",
			signedIn:   true,
			profileErr: &providers.ProfileError{Kind: providers.KindUnreachable, Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComponents(t, &fakeProvider{profileErr: tt.profileErr}, &fakeAPI{})
			if tt.signedIn {
				require.NoError(t, c.Store.SetSession(models.Session{Token: "tok"}))
			}

			rec := get(NewServer(c).Routes(), "/api/profile")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var p models.UserProfile
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
				assert.Equal(t, "octocat", p.Handle)
			}
		})
	}
}

func TestReposAPI(t *testing.T) {
	tests := []struct {
		name       string
		apiErr     error
		wantStatus int
	}{
		{name: "ok", wantStatus: http.StatusOK},
		{name: "unauthorized", apiErr: fmt.Errorf("GET /user/repos: %w", requester.ErrUnauthorized), wantStatus: http.StatusUnauthorized},
		{name: "failing", apiErr: errors.New("status 500"), wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComponents(t, &fakeProvider{}, &fakeAPI{err: tt.apiErr})
			require.NoError(t, c.Store.SetSession(models.Session{Token: "tok"}))

			rec := get(NewServer(c).Routes(), "/api/repos?limit=5")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCallbackThroughRouter(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	h := NewServer(c).Routes()

	rec := get(h, "/auth/callback?code=xyz")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "tok-xyz", c.Store.Token())
}

func TestStartAndShutdown(t *testing.T) {
	c := newComponents(t, &fakeProvider{}, &fakeAPI{})
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	c.Config.Server.Port = l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(c).Start(ctx) }()

	addr := fmt.Sprintf("http://127.0.0.1:%d/api/session", c.Config.Server.Port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
