package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
)

// BackendExchanger sends the authorization code to an application backend instead of
// the provider's token endpoint. Everything else is delegated to the wrapped provider.
type BackendExchanger struct {
	Provider
	backendURL string
	httpClient *http.Client
}

func NewBackendExchanger(p Provider, backendURL string, httpClient *http.Client) *BackendExchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BackendExchanger{Provider: p, backendURL: backendURL, httpClient: httpClient}
}

type backendExchangeResponse struct {
	Token string      `json:"token"`
	User  *githubUser `json:"user"`
}

func (b *BackendExchanger) ExchangeCode(ctx context.Context, code string) (*Exchange, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return nil, &ExchangeError{Kind: KindInvalidInput, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.backendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &ExchangeError{Kind: KindInvalidInput, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Kind: KindUnreachable, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExchangeError{Kind: KindRejected, Status: resp.StatusCode, Err: errors.New("backend refused the code")}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ExchangeError{Kind: KindUnreachable, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var out backendExchangeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ExchangeError{Kind: KindMalformed, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if out.Token == "" {
		return nil, &ExchangeError{Kind: KindMalformed, Err: errors.New("response carried no token")}
	}

	result := &Exchange{Session: sessionFromToken(out.Token)}
	if out.User != nil {
		if p := out.User.toProfile(); p.Valid() {
			result.User = p
		} else {
			logger.Debug("Ignoring embedded user without id or handle")
		}
	}
	return result, nil
}
