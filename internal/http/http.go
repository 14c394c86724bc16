// Package http holds the response helpers and middleware shared by handlers.
package http

import (
	"encoding/json"
	"html"
	"net"
	"net/http"
	"strings"

	"loanpredictor/internal/logger"
	"loanpredictor/internal/templates"
)

// HXRequestHeader marks requests that want a fragment instead of a full page
const HXRequestHeader = "HX-Request"

// IsPartial reports whether the request asked for a fragment
func IsPartial(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(HXRequestHeader), "true")
}

// Render writes page, or partial when the request asked for a fragment
func Render(w http.ResponseWriter, r *http.Request, renderer *templates.Renderer, status int, page, partial string, data map[string]interface{}) {
	name := page
	if partial != "" && IsPartial(r) {
		name = partial
	}

	if renderer == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte("<html><body><h1>" + html.EscapeString(name) + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
		return
	}
	renderer.Render(w, status, name, data)
}

// ErrorResponse logs and sends a plain-text error
func ErrorResponse(w http.ResponseWriter, log logger.Logger, message string, statusCode int) {
	log.Warn("Request failed", map[string]interface{}{
		"message": message,
		"status":  statusCode,
	})
	http.Error(w, message, statusCode)
}

// JSONResponse writes data as JSON
func JSONResponse(w http.ResponseWriter, log logger.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode JSON response", nil)
	}
}

// ClientIP returns the host part of the request's remote address
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
