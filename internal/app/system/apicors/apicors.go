// Package apicors holds the CORS middleware in front of the JSON API.
// Browser frontends on the configured origins call the report endpoints
// with the session cookie, so only known origins may be echoed back.
package apicors

import "net/http"

// setCommonHeaders writes the method and header allowances shared by
// every API response, preflight or not.
func setCommonHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
	h.Set("Access-Control-Max-Age", "86400")
}

// MiddlewareWithOrigins allows cross-origin API calls from the given
// origins only. An unlisted origin gets no Allow-Origin header, which
// makes the browser block the response.
//
//	r.Group(func(r chi.Router) {
//	    r.Use(apicors.MiddlewareWithOrigins(appCfg.CORSAllowedOrigins...))
//	    r.Mount("/api", apiRoutes)
//	})
func MiddlewareWithOrigins(allowedOrigins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}
			setCommonHeaders(w.Header())

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
