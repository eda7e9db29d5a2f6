package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GoogleProvider discovers the issuer's endpoints on first use and caches them.
// A failed discovery is retried by the next call.
type GoogleProvider struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client

	mu        sync.Mutex
	endpoints *googleEndpoints
}

type googleEndpoints struct {
	oauth2Config *oauth2.Config
	userInfoURL  string
	revokeURL    string
}

// NewGoogleProvider does no network I/O; local session commands work with the issuer down.
func NewGoogleProvider(cfg *config.ProviderConfig, httpClient *http.Client) *GoogleProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &GoogleProvider{cfg: cfg, httpClient: httpClient}
}

func (p *GoogleProvider) discover(ctx context.Context) (*googleEndpoints, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.endpoints != nil {
		return p.endpoints, nil
	}

	issuer := p.cfg.IssuerURL
	if issuer == "" {
		issuer = constants.GoogleIssuerURL
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	var discovered struct {
		UserInfoURL   string `json:"userinfo_endpoint"`
		RevocationURL string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&discovered); err != nil {
		return nil, fmt.Errorf("failed to read discovery document: %w", err)
	}
	if discovered.UserInfoURL == "" {
		return nil, errors.New("issuer does not advertise a userinfo endpoint")
	}

	endpoint := provider.Endpoint()
	if p.cfg.AuthURL != "" {
		endpoint.AuthURL = p.cfg.AuthURL
	}
	if p.cfg.TokenURL != "" {
		endpoint.TokenURL = p.cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := p.cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultGoogleScopes
	}

	revokeURL := p.cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = discovered.RevocationURL
	}

	p.endpoints = &googleEndpoints{
		oauth2Config: &oauth2.Config{
			ClientID:     p.cfg.ClientID,
			ClientSecret: p.cfg.ClientSecret,
			RedirectURL:  p.cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: discovered.UserInfoURL,
		revokeURL:   revokeURL,
	}
	logger.Debug("Discovered issuer endpoints", zap.String("issuer", issuer))
	return p.endpoints, nil
}

// AuthorizationURL returns "" when the issuer cannot be discovered.
func (p *GoogleProvider) AuthorizationURL() string {
	e, err := p.discover(context.Background())
	if err != nil {
		logger.Warn("Authorization URL unavailable", zap.Error(err))
		return ""
	}
	return e.oauth2Config.AuthCodeURL("")
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*Exchange, error) {
	e, err := p.discover(ctx)
	if err != nil {
		return nil, &ExchangeError{Kind: KindUnreachable, Err: err}
	}
	return exchange(ctx, e.oauth2Config, p.httpClient, code)
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, token string) (*models.UserProfile, error) {
	e, err := p.discover(ctx)
	if err != nil {
		return nil, &ProfileError{Kind: KindUnreachable, Err: err}
	}
	return fetchProfile(ctx, p.httpClient, e.userInfoURL, token, decodeGoogleUserInfo)
}

func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	e, err := p.discover(ctx)
	if err != nil {
		return err
	}
	if e.revokeURL == "" {
		return nil
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke request failed with status %d", resp.StatusCode)
	}
	return nil
}

func decodeGoogleUserInfo(body []byte) (*models.UserProfile, error) {
	var info struct {
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		Picture           string `json:"picture"`
		Profile           string `json:"profile"`
		HD                string `json:"hd"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	// Google has no usernames; fall back to the email, then the subject
	handle := info.PreferredUsername
	if handle == "" {
		handle = info.Email
	}
	if handle == "" {
		handle = info.Sub
	}

	return &models.UserProfile{
		ID:           info.Sub,
		Handle:       handle,
		DisplayName:  info.Name,
		AvatarURL:    info.Picture,
		ContactEmail: info.Email,
		Affiliation:  info.HD,
		ProfileURL:   info.Profile,
	}, nil
}
