package constants

import "time"

const (
	// DefaultPort is the default port for the local dashboard server
	DefaultPort = 3000

	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "
)

// Persisted session layout. Absence of either key is a valid "no session" state.
const (
	TokenKey   = "token"
	ProfileKey = "user"
)

// Callback landing query parameters
const (
	CodeParam  = "code"
	ErrorParam = "error"
)

// MissingCodeReason is the denial reason used when the callback landed without a code.
const MissingCodeReason = "missing-code"

const (
	// DefaultWatchdog bounds how long a callback landing may stay unresolved.
	DefaultWatchdog = 10 * time.Second

	// DefaultLogoutTimeout bounds the best-effort remote sign-out.
	DefaultLogoutTimeout = 5 * time.Second

	// DefaultHTTPTimeout is used for provider and API calls.
	DefaultHTTPTimeout = 30 * time.Second
)

// Provider defaults
const (
	GitHubAPIBaseURL = "https://api.github.com"
	GoogleIssuerURL  = "https://accounts.google.com"
)

// DefaultGitHubScopes is the fixed permission scope requested from GitHub.
var DefaultGitHubScopes = []string{"read:user", "user:email"}

// DefaultGoogleScopes is the fixed permission scope requested from Google.
var DefaultGoogleScopes = []string{"openid", "profile", "email"}
