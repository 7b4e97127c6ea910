package testutil

import (
	"context"
	"net/http"
)

// csrfTokenKey is the context key gorilla/csrf reads tokens from.
const csrfTokenKey = "gorilla.csrf.Token"

// WithCSRFToken injects a fake CSRF token into the request context so
// handlers that render forms (every page view model calls csrf.Token)
// work outside the csrf middleware.
func WithCSRFToken(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenKey, "test-csrf-token-12345")
	return r.WithContext(ctx)
}

// NewAuthenticatedRequestWithCSRF builds a request carrying both a test
// user and a CSRF token, for handlers that render forms.
func NewAuthenticatedRequestWithCSRF(method, target string, user TestUser) *http.Request {
	req := NewAuthenticatedRequest(method, target, user)
	return WithCSRFToken(req)
}
