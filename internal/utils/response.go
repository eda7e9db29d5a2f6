package utils

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/brizzai/devdash/internal/logger"
	"go.uber.org/zap"
)

// NoticeParam carries the one-line user notice across a redirect
const NoticeParam = "notice"

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": message,
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Redirect sends the browser to route, attaching notice when present
func Redirect(w http.ResponseWriter, r *http.Request, route, notice string) {
	target := route
	if notice != "" {
		target += "?" + url.Values{NoticeParam: {notice}}.Encode()
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
