package session

import (
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/fx"
)

// ResolverParams holds the dependencies of the callback resolver
type ResolverParams struct {
	fx.In

	Config    *config.Config
	Provider  providers.Provider
	Store     *tokenstore.Store
	Profiles  *profile.Cache
	Navigator Navigator
	Routes    Routes
}

func newResolver(p ResolverParams) *Resolver {
	return NewResolver(p.Provider, p.Store, p.Profiles, p.Navigator, p.Routes, p.Config.Callback.Watchdog)
}

func newLogout(cfg *config.Config, store *tokenstore.Store, provider providers.Provider, nav Navigator, routes Routes) *Logout {
	return NewLogout(store, provider, nav, routes, cfg.Logout.Timeout)
}

// Module provides the session flow. Surfaces that route on their own may
// replace the Navigator with fx.Decorate.
var Module = fx.Module("session",
	fx.Provide(
		NewRoutes,
		fx.Annotate(
			NewLogNavigator,
			fx.As(new(Navigator)),
		),
		newResolver,
		NewGuard,
		newLogout,
		NewDemoter,
	),
)
