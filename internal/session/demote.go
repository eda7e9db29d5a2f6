package session

import (
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/zap"
)

// Demoter handles an unauthorized response from any API call: the session the
// request carried is cleared and the user is sent to the login route.
type Demoter struct {
	store  *tokenstore.Store
	nav    Navigator
	routes Routes
}

func NewDemoter(store *tokenstore.Store, nav Navigator, routes Routes) *Demoter {
	if nav == nil {
		nav = NewLogNavigator()
	}
	return &Demoter{store: store, nav: nav, routes: routes}
}

// HandleUnauthorized clears the session only if token is still the current one,
// so a late 401 for an old token cannot log out a fresh login.
func (d *Demoter) HandleUnauthorized(token string) {
	cleared, err := d.store.ClearIf(token)
	if err != nil {
		logger.Error("Failed to clear session after unauthorized response", zap.Error(err))
	}
	if !cleared && d.store.Token() != "" {
		return
	}
	d.nav.Navigate(d.routes.Login, "Your session has expired. Please sign in again.")
}
