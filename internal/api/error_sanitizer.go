package api

import (
	"net/http"
	"strings"

	"github.com/ranauvalemobi/dashboard-email-marketing/internal/logging"
	"github.com/sirupsen/logrus"
)

// Internal errors (store failures, template errors) never reach the client.
// The full error is logged and a generic message goes out instead.

// sanitizedError logs the full internal error and returns a public-safe message.
func sanitizedError(r *http.Request, code int, internalErr error, publicMsg string) string {
	if internalErr != nil {
		logging.For("api").WithFields(logrus.Fields{
			"status": code,
			"path":   r.URL.Path,
		}).WithError(internalErr).Error(publicMsg)
	}
	return publicMsg
}

// respondSafeError logs the internal error and sends a sanitized JSON error.
func respondSafeError(w http.ResponseWriter, r *http.Request, code int, internalErr error, publicMsg string) {
	msg := sanitizedError(r, code, internalErr, publicMsg)
	respondJSON(w, code, map[string]string{"error": msg})
}

// respondSafeHTTPError is the plain-text variant for the HTML page.
func respondSafeHTTPError(w http.ResponseWriter, r *http.Request, code int, internalErr error, publicMsg string) {
	msg := sanitizedError(r, code, internalErr, publicMsg)
	http.Error(w, msg, code)
}

// safeErrorMessage maps internal errors to public-safe messages.
// 4xx errors describe user input and are passed through.
func safeErrorMessage(code int, internalErr error) string {
	if code < 500 {
		if internalErr != nil {
			return internalErr.Error()
		}
		return "Bad request"
	}

	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "redis"):
		return "Session storage temporarily unavailable"

	case strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled"):
		return "Request timed out"

	default:
		return "An internal error occurred"
	}
}
