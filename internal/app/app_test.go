package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleConfig(sessionPath string) *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			Name:        config.ProviderGoogle,
			ClientID:    "g-client",
			RedirectURL: "http://localhost:3000/auth/callback",
			IssuerURL:   "http://127.0.0.1:1",
			Timeout:     time.Second,
		},
		Exchange: config.ExchangeConfig{Mode: config.ExchangeModeProvider},
		Callback: config.CallbackConfig{Watchdog: time.Second},
		Session:  config.SessionConfig{Backend: config.StorageFile, Path: sessionPath},
		Routes:   config.RoutesConfig{Login: "/login", Dashboard: "/dashboard"},
		Logout:   config.LogoutConfig{Timeout: time.Second},
	}
}

func seedSession(t *testing.T, path, token string) {
	t.Helper()
	backend, err := tokenstore.NewFileBackend(path)
	require.NoError(t, err)
	s := tokenstore.New(backend)
	require.NoError(t, s.SetSession(models.Session{Token: token}))
	require.NoError(t, s.Close())
}

func TestLogoutWithIssuerUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	seedSession(t, path, "tok")

	c, stop, err := New(context.Background(), googleConfig(path), nil)
	require.NoError(t, err, "building the graph must not need the issuer")
	defer stop()

	assert.True(t, c.Guard.IsAuthorized())

	route := c.Logout.Logout(context.Background())
	assert.Equal(t, c.Routes.Login, route)
	assert.Empty(t, c.Store.Token())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "the persisted session is removed")
}

func TestNewSurvivesCorruptSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	c, stop, err := New(context.Background(), googleConfig(path), nil)
	require.NoError(t, err)
	defer stop()

	assert.False(t, c.Guard.IsAuthorized())
	assert.Equal(t, c.Routes.Login, c.Logout.Logout(context.Background()))
}
