// Package app wires the session flow into a ready-to-use component graph.
package app

import (
	"context"
	"fmt"

	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/dashboard"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/requester"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tokenstore"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module is the full dependency graph minus *config.Config.
var Module = fx.Options(
	tokenstore.Module,
	providers.Module,
	profile.Module,
	session.Module,
	requester.Module,
	dashboard.Module,
	fx.Provide(
		func(d *session.Demoter) requester.UnauthorizedHandler { return d },
	),
)

// Components are the entry points the surfaces (CLI, HTTP, TUI) use.
type Components struct {
	fx.In

	Config    *config.Config
	Store     *tokenstore.Store
	Provider  providers.Provider
	Profiles  *profile.Cache
	Resolver  *session.Resolver
	Guard     *session.Guard
	Logout    *session.Logout
	Dashboard *dashboard.Service
	Routes    session.Routes
}

// New builds the graph for cfg. A non-nil nav replaces the default navigator.
// The returned stop function releases the session backend.
func New(ctx context.Context, cfg *config.Config, nav session.Navigator) (*Components, func(), error) {
	var c Components

	opts := []fx.Option{
		fx.Supply(cfg),
		Module,
		fx.Populate(&c),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger().WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))}
		}),
	}
	if nav != nil {
		opts = append(opts, fx.Decorate(func(session.Navigator) session.Navigator { return nav }))
	}

	fxApp := fx.New(opts...)
	if err := fxApp.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to build application: %w", err)
	}
	if err := fxApp.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start application: %w", err)
	}

	stop := func() {
		if err := fxApp.Stop(context.Background()); err != nil {
			logger.Warn("Failed to stop application", zap.Error(err))
		}
	}
	return &c, stop, nil
}
