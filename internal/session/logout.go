package session

import (
	"context"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/zap"
)

// Revoker is the best-effort remote sign-out.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// Logout tears the session down.
type Logout struct {
	store   *tokenstore.Store
	revoker Revoker
	nav     Navigator
	routes  Routes
	timeout time.Duration
}

func NewLogout(store *tokenstore.Store, revoker Revoker, nav Navigator, routes Routes, timeout time.Duration) *Logout {
	if timeout <= 0 {
		timeout = constants.DefaultLogoutTimeout
	}
	if nav == nil {
		nav = NewLogNavigator()
	}
	return &Logout{store: store, revoker: revoker, nav: nav, routes: routes, timeout: timeout}
}

// Logout clears token and profile first, then notifies the provider. The remote
// call is bounded by the logout timeout and its failure is only logged.
func (l *Logout) Logout(ctx context.Context) Route {
	token := l.store.Token()
	if err := l.store.Clear(); err != nil {
		logger.Error("Failed to persist logout", zap.Error(err))
	}

	if token != "" && l.revoker != nil {
		l.revoke(ctx, token)
	}

	l.nav.Navigate(l.routes.Login, "You have been signed out.")
	return l.routes.Login
}

func (l *Logout) revoke(ctx context.Context, token string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Remote sign-out panicked", zap.Any("panic", rec))
		}
	}()

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.revoker.Revoke(rctx, token); err != nil {
		logger.Warn("Remote sign-out failed", zap.Error(err), logger.Fingerprint(token))
		return
	}
	logger.Debug("Remote sign-out succeeded", logger.Fingerprint(token))
}
