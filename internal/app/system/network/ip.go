// Package network has request-level network helpers.
package network

import (
	"net/http"
	"strings"
)

// GetClientIP returns the originating client address for a request.
// Proxy headers win over RemoteAddr: X-Forwarded-For first (leftmost
// entry is the client), then X-Real-IP. The session store records this
// for the profile page's active-session list.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr carries a port; strip it.
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
