package requester

import (
	"net/http"
	"strings"

	"github.com/brizzai/devdash/internal/auth/constants"
)

// TokenSource yields the current session token ("" when there is none)
type TokenSource interface {
	Token() string
}

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// SessionAuthManager attaches the stored session token as a bearer credential
type SessionAuthManager struct {
	tokens TokenSource
}

// NewSessionAuthManager creates a new SessionAuthManager
func NewSessionAuthManager(tokens TokenSource) *SessionAuthManager {
	return &SessionAuthManager{tokens: tokens}
}

// ApplyAuth adds the bearer header when a session is present; requests without
// a session go out unauthenticated.
func (a *SessionAuthManager) ApplyAuth(req *http.Request) error {
	if token := a.tokens.Token(); token != "" {
		req.Header.Set(constants.AuthHeaderName, constants.AuthHeaderPrefix+token)
	}
	return nil
}

// bearerToken returns the token a request was sent with.
func bearerToken(req *http.Request) string {
	h := req.Header.Get(constants.AuthHeaderName)
	if !strings.HasPrefix(h, constants.AuthHeaderPrefix) {
		return ""
	}
	return strings.TrimPrefix(h, constants.AuthHeaderPrefix)
}
