package session

import (
	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/tokenstore"
)

// Guard decides whether a protected view may be entered. It only reads the
// token store: no network, no blocking, and a stale token still passes until
// a provider call reports it unauthorized.
type Guard struct {
	store  *tokenstore.Store
	routes Routes
	nav    Navigator
}

func NewGuard(store *tokenstore.Store, routes Routes, nav Navigator) *Guard {
	if nav == nil {
		nav = NewLogNavigator()
	}
	return &Guard{store: store, routes: routes, nav: nav}
}

// IsAuthorized reports whether a non-empty token is stored.
func (g *Guard) IsAuthorized() bool {
	return g.store.Token() != ""
}

// Enter is called before a protected view mounts. When it returns false the
// navigator has already been sent to the login route and the view must not run.
func (g *Guard) Enter() bool {
	if g.IsAuthorized() {
		return true
	}
	g.nav.Navigate(g.routes.Login, "Please sign in to continue.")
	return false
}

// Session returns the stored session for display purposes.
func (g *Guard) Session() (models.Session, bool) {
	return g.store.Session()
}

// Routes exposes the entry points the guard routes between.
func (g *Guard) Routes() Routes {
	return g.routes
}
