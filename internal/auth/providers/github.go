package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

type GitHubProvider struct {
	oauth2Config *oauth2.Config
	apiBaseURL   string
	revokeURL    string
	httpClient   *http.Client
}

func NewGitHubProvider(cfg *config.ProviderConfig, httpClient *http.Client) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// one request per exchange: auto-detect would retry with the other style on failure
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultGitHubScopes
	}

	apiBaseURL := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = constants.GitHubAPIBaseURL
	}

	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = fmt.Sprintf("%s/applications/%s/token", apiBaseURL, cfg.ClientID)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}

	return &GitHubProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		apiBaseURL: apiBaseURL,
		revokeURL:  revokeURL,
		httpClient: httpClient,
	}
}

func (p *GitHubProvider) AuthorizationURL() string {
	return p.oauth2Config.AuthCodeURL("")
}

func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*Exchange, error) {
	return exchange(ctx, p.oauth2Config, p.httpClient, code)
}

func (p *GitHubProvider) FetchProfile(ctx context.Context, token string) (*models.UserProfile, error) {
	return fetchProfile(ctx, p.httpClient, p.apiBaseURL+"/user", token, decodeGitHubUser)
}

// Revoke deletes the application token. Without a client secret GitHub cannot
// authenticate the call, so there is nothing to notify.
func (p *GitHubProvider) Revoke(ctx context.Context, token string) error {
	if p.oauth2Config.ClientSecret == "" || token == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"access_token": token})
	if err != nil {
		return fmt.Errorf("failed to encode revoke request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.revokeURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.SetBasicAuth(p.oauth2Config.ClientID, p.oauth2Config.ClientSecret)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke request failed with status %d", resp.StatusCode)
	}
	return nil
}

// githubUser is the subset of GET /user used for the profile
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Company   string `json:"company"`
	Location  string `json:"location"`
	HTMLURL   string `json:"html_url"`
	Followers *int   `json:"followers"`
	Following *int   `json:"following"`
}

func (u githubUser) toProfile() *models.UserProfile {
	id := ""
	if u.ID != 0 {
		id = strconv.FormatInt(u.ID, 10)
	}
	return &models.UserProfile{
		ID:             id,
		Handle:         u.Login,
		DisplayName:    u.Name,
		AvatarURL:      u.AvatarURL,
		ContactEmail:   u.Email,
		Bio:            u.Bio,
		Affiliation:    u.Company,
		Location:       u.Location,
		ProfileURL:     u.HTMLURL,
		FollowerCount:  u.Followers,
		FollowingCount: u.Following,
	}
}

func decodeGitHubUser(body []byte) (*models.UserProfile, error) {
	var gh githubUser
	if err := json.Unmarshal(body, &gh); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return gh.toProfile(), nil
}
