package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

var errEmptyCode = errors.New("authorization code is empty")

func validateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return &ExchangeError{Kind: KindInvalidInput, Err: errEmptyCode}
	}
	return nil
}

// exchange performs exactly one token request; the endpoint's AuthStyle must not be auto-detect.
func exchange(ctx context.Context, cfg *oauth2.Config, httpClient *http.Client, code string) (*Exchange, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		logger.Warn("Code exchange failed", zap.Error(err))
		return nil, classifyExchangeError(err)
	}
	if tok.AccessToken == "" {
		return nil, &ExchangeError{Kind: KindMalformed, Err: errors.New("response carried no access token")}
	}

	return &Exchange{Session: sessionFromOAuth2(tok)}, nil
}

func sessionFromToken(token string) models.Session {
	s := models.SessionFromToken(token)
	if s.IssuedAt.IsZero() {
		s.IssuedAt = time.Now()
	}
	return s
}

func sessionFromOAuth2(tok *oauth2.Token) models.Session {
	s := sessionFromToken(tok.AccessToken)
	if !tok.Expiry.IsZero() {
		s.ExpiresAt = tok.Expiry
	}
	return s
}

type profileDecoder func(body []byte) (*models.UserProfile, error)

// fetchProfile issues the authenticated profile request and maps the outcome onto ProfileError.
func fetchProfile(ctx context.Context, httpClient *http.Client, endpoint, token string, decode profileDecoder) (*models.UserProfile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &ProfileError{Kind: KindUnauthorized, Err: errors.New("no token")}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   constants.TokenType,
	}))
	client.Timeout = httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProfileError{Kind: KindMalformed, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProfileError{Kind: KindUnreachable, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &ProfileError{Kind: KindUnauthorized, Status: resp.StatusCode, Err: errors.New("token rejected by provider")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProfileError{Kind: KindUnreachable, Status: resp.StatusCode, Err: errors.New("unexpected profile response")}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProfileError{Kind: KindUnreachable, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	p, err := decode(body)
	if err != nil {
		return nil, &ProfileError{Kind: KindMalformed, Err: err}
	}
	if !p.Valid() {
		return nil, &ProfileError{Kind: KindMalformed, Err: errors.New("profile is missing id or handle")}
	}
	return p, nil
}
