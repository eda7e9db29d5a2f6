// Package server serves the local dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brizzai/devdash/internal/app"
	"github.com/brizzai/devdash/internal/auth"
	"github.com/brizzai/devdash/internal/auth/middleware"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/dashboard"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tokenstore"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server is the HTTP surface of the dashboard
type Server struct {
	config    *config.Config
	auth      *auth.Service
	guard     *session.Guard
	store     *tokenstore.Store
	profiles  *profile.Cache
	dashboard *dashboard.Service
	routes    session.Routes
}

// NewServer creates the HTTP surface from the application components
func NewServer(c *app.Components) *Server {
	return &Server{
		config:    c.Config,
		auth:      auth.NewService(c.Config, c.Provider, c.Resolver, c.Guard, c.Logout),
		guard:     c.Guard,
		store:     c.Store,
		profiles:  c.Profiles,
		dashboard: c.Dashboard,
		routes:    c.Routes,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get(string(s.routes.Login), s.handleLogin)
	s.auth.RegisterRoutes(r)

	r.With(s.auth.RequireSession()).Get(string(s.routes.Dashboard), s.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireSessionAPI())
		r.Get("/api/profile", s.handleProfile)
		r.Get("/api/repos", s.handleRepos)
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// the callback may wait for the watchdog before answering
		WriteTimeout: s.config.Callback.Watchdog + s.config.Server.Timeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
