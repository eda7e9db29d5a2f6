package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/config"
)

// Exchange is the result of a successful code exchange
type Exchange struct {
	Session models.Session

	// User is set when the exchange response embedded a user object.
	User *models.UserProfile
}

// Provider is the only component that talks to the external identity provider
type Provider interface {
	// AuthorizationURL builds the sign-in redirect; "" means the provider is unavailable.
	AuthorizationURL() string

	// ExchangeCode trades an authorization code for an access token.
	// Failures are *ExchangeError.
	ExchangeCode(ctx context.Context, code string) (*Exchange, error)

	// FetchProfile resolves a token into a user profile. Failures are *ProfileError.
	FetchProfile(ctx context.Context, token string) (*models.UserProfile, error)

	// Revoke notifies the provider that the token is no longer used.
	Revoke(ctx context.Context, token string) error
}

// New builds the configured provider, wrapped with the backend exchanger in backend mode.
func New(cfg *config.Config) (Provider, error) {
	httpClient := &http.Client{Timeout: cfg.Provider.Timeout}

	var p Provider
	switch cfg.Provider.Name {
	case config.ProviderGitHub:
		p = NewGitHubProvider(&cfg.Provider, httpClient)
	case config.ProviderGoogle:
		p = NewGoogleProvider(&cfg.Provider, httpClient)
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidProvider, cfg.Provider.Name)
	}

	if cfg.Exchange.Mode == config.ExchangeModeBackend {
		p = NewBackendExchanger(p, cfg.Exchange.BackendURL, httpClient)
	}
	return p, nil
}
