package auth

import (
	"net/http"

	"github.com/brizzai/devdash/internal/auth/handlers"
	"github.com/brizzai/devdash/internal/auth/middleware"
	"github.com/brizzai/devdash/internal/auth/providers"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/session"
	"github.com/go-chi/chi/v5"
)

// Service exposes the session flow over HTTP
type Service struct {
	config   *config.Config
	provider providers.Provider
	guard    *session.Guard
	handler  *handlers.Handler
}

// NewService creates a new session HTTP service
func NewService(cfg *config.Config, provider providers.Provider, resolver *session.Resolver, guard *session.Guard, logout *session.Logout) *Service {
	return &Service{
		config:   cfg,
		provider: provider,
		guard:    guard,
		handler:  handlers.NewHandler(provider, resolver, guard, logout),
	}
}

// RegisterRoutes registers the login, callback, logout and session routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/auth/start", s.handler.HandleStart)
	r.Get(s.config.Provider.CallbackPath(), s.handler.HandleCallback)
	r.Post("/auth/logout", s.handler.HandleLogout)
	r.Get("/api/session", s.handler.HandleSession)
}

// RequireSession returns the guard middleware for pages
func (s *Service) RequireSession() func(http.Handler) http.Handler {
	return middleware.RequireSession(s.guard)
}

// RequireSessionAPI returns the guard middleware for JSON endpoints
func (s *Service) RequireSessionAPI() func(http.Handler) http.Handler {
	return middleware.RequireSessionAPI(s.guard)
}

// GetProvider returns the configured provider
func (s *Service) GetProvider() providers.Provider {
	return s.provider
}
