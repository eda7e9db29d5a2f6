package handlers

import (
	"net/http"
	"time"

	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/utils"
	"go.uber.org/zap"
)

// AuthorizationURLer builds the provider redirect
type AuthorizationURLer interface {
	AuthorizationURL() string
}

// Handler handles the session-related HTTP requests
type Handler struct {
	provider AuthorizationURLer
	resolver *session.Resolver
	guard    *session.Guard
	logout   *session.Logout
	now      func() time.Time
}

// NewHandler creates a new Handler instance
func NewHandler(provider AuthorizationURLer, resolver *session.Resolver, guard *session.Guard, logout *session.Logout) *Handler {
	return &Handler{
		provider: provider,
		resolver: resolver,
		guard:    guard,
		logout:   logout,
		now:      time.Now,
	}
}

// HandleStart sends the browser to the provider's consent screen
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	authURL := h.provider.AuthorizationURL()
	if authURL == "" {
		utils.Redirect(w, r, string(h.guard.Routes().Login), "Sign-in is unavailable right now. Please try again.")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback resolves the provider redirect and routes to the outcome's entry point
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	out := h.resolver.Resolve(r.Context(), session.ParamsFromQuery(r.URL.Query()))
	if out.Kind == session.Failed {
		logger.Warn("Callback failed", zap.Error(out.Cause))
	}
	utils.Redirect(w, r, string(out.Route), out.Notice)
}

// HandleLogout clears the session and routes to login. Cross-site submissions are refused.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Sec-Fetch-Site") == "cross-site" {
		utils.WriteError(w, "forbidden", "Cross-site sign-out is not allowed", http.StatusForbidden)
		return
	}
	route := h.logout.Logout(r.Context())
	utils.Redirect(w, r, string(route), "You have been signed out.")
}

// HandleSession reports the guard decision without touching the network
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.guard.Session()
	resp := map[string]interface{}{
		"authorized": ok,
	}
	if ok {
		resp["expiry"] = sess.ExpiryMessage(h.now())
		if !sess.ExpiresAt.IsZero() {
			resp["expires_at"] = sess.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}
	utils.WriteJSON(w, resp)
}
