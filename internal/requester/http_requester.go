package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPRequester is the generic outbound HTTP layer. Every request carries the
// session token when one exists, and any 401 demotes the session globally.
type HTTPRequester struct {
	client         *http.Client
	baseURL        string
	authMgr        AuthManager
	onUnauthorized UnauthorizedHandler
}

type HTTPRequesterParams struct {
	fx.In

	BaseURL        string `name:"api_base_url"`
	AuthManager    AuthManager
	OnUnauthorized UnauthorizedHandler
}

// NewHTTPRequester creates a new HTTPRequester with default configuration
func NewHTTPRequester(params HTTPRequesterParams) *HTTPRequester {
	return &HTTPRequester{
		client: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		baseURL:        strings.TrimSuffix(params.BaseURL, "/"),
		authMgr:        params.AuthManager,
		onUnauthorized: params.OnUnauthorized,
	}
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// BuildRequest builds an authenticated request for path relative to the base URL
func (r *HTTPRequester) BuildRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := r.authMgr.ApplyAuth(req); err != nil {
		return nil, fmt.Errorf("failed to apply authentication: %w", err)
	}
	return req, nil
}

// Do builds and executes a request. A 401 response yields ErrUnauthorized after
// the unauthorized handler ran; other statuses are returned to the caller.
func (r *HTTPRequester) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*Response, error) {
	req, err := r.BuildRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	logger.Debug("Outbound request", zap.String("method", method), zap.String("path", path))

	resp, err := r.execute(req)
	if err != nil {
		logger.Error("Failed to execute request", zap.Error(err))
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		token := bearerToken(req)
		logger.Info("Outbound request unauthorized, demoting session",
			zap.String("path", path),
			logger.Fingerprint(token),
		)
		if r.onUnauthorized != nil {
			r.onUnauthorized.HandleUnauthorized(token)
		}
		return resp, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	return resp, nil
}

// GetJSON performs a GET and decodes a 2xx JSON body into out
func (r *HTTPRequester) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := r.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s failed with status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (r *HTTPRequester) execute(req *http.Request) (*Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("Failed to close response body", zap.Error(closeErr))
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       bodyBytes,
		Headers:    resp.Header,
	}, nil
}
