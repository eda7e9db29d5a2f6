package session

import (
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
)

// Route is a navigation target
type Route string

// Routes holds the two entry points every decision routes to.
type Routes struct {
	// Login is the unauthenticated entry point.
	Login Route
	// Dashboard is the protected entry point.
	Dashboard Route
}

func NewRoutes(cfg *config.Config) Routes {
	return Routes{
		Login:     Route(cfg.Routes.Login),
		Dashboard: Route(cfg.Routes.Dashboard),
	}
}

// Navigator receives routing decisions together with an optional one-line notice.
type Navigator interface {
	Navigate(route Route, notice string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route Route, notice string)

func (f NavigatorFunc) Navigate(route Route, notice string) { f(route, notice) }

// LogNavigator only records decisions; surfaces that route on their own (HTTP) use it.
type LogNavigator struct{}

func NewLogNavigator() *LogNavigator { return &LogNavigator{} }

func (LogNavigator) Navigate(route Route, notice string) {
	logger.Debug("Navigation decision", zap.String("route", string(route)), zap.String("notice", notice))
}
