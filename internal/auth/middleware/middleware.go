package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brizzai/devdash/internal/auth/constants"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/utils"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequireSession redirects to the login route before a protected page handler runs
func RequireSession(guard *session.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.IsAuthorized() {
				logger.Debug("Guard redirected protected page", zap.String("path", r.URL.Path))
				utils.Redirect(w, r, string(guard.Routes().Login), "Please sign in to continue.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSessionAPI answers 401 before a protected API handler runs
func RequireSessionAPI(guard *session.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !guard.IsAuthorized() {
				writeUnauthorized(w, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request with the chi request id
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("HTTP request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`%s realm="devdash", error="unauthorized"`, constants.TokenType))
	utils.WriteError(w, "unauthorized", message, http.StatusUnauthorized)
}
