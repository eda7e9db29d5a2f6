package requester

import (
	"strings"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/fx"
)

func apiBaseURL(cfg *config.Config) string {
	if u := strings.TrimSpace(cfg.Provider.APIBaseURL); u != "" {
		return u
	}
	return constants.GitHubAPIBaseURL
}

// Module provides the requester module dependencies. It expects an
// UnauthorizedHandler from the session layer.
var Module = fx.Options(
	fx.Provide(
		NewHTTPRequester,
		fx.Annotate(
			apiBaseURL,
			fx.ResultTags(`name:"api_base_url"`),
		),
		fx.Annotate(
			func(store *tokenstore.Store) *SessionAuthManager { return NewSessionAuthManager(store) },
			fx.As(new(AuthManager)),
		),
	),
)
