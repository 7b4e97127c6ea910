// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	authgooglefeature "github.com/vitalmetrics/fitreport/internal/app/features/authgoogle"
	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	generateapifeature "github.com/vitalmetrics/fitreport/internal/app/features/generateapi"
	healthfeature "github.com/vitalmetrics/fitreport/internal/app/features/health"
	homefeature "github.com/vitalmetrics/fitreport/internal/app/features/home"
	inputfeature "github.com/vitalmetrics/fitreport/internal/app/features/input"
	loginfeature "github.com/vitalmetrics/fitreport/internal/app/features/login"
	logoutfeature "github.com/vitalmetrics/fitreport/internal/app/features/logout"
	profilefeature "github.com/vitalmetrics/fitreport/internal/app/features/profile"
	reportsfeature "github.com/vitalmetrics/fitreport/internal/app/features/reports"
	settingsfeature "github.com/vitalmetrics/fitreport/internal/app/features/settings"
	appresources "github.com/vitalmetrics/fitreport/internal/app/resources"
	"github.com/vitalmetrics/fitreport/internal/app/store/oauthstate"
	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/apicors"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/network"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// requestTimeout bounds every request. It is generous because a report
// generation request holds the connection for the whole model call,
// which can take minutes.
const requestTimeout = 6 * time.Minute

// csrfExemptPaths lists JSON API endpoints that skip CSRF. Script
// clients authenticate with the session cookie and have no way to
// obtain a form token.
var csrfExemptPaths = map[string]bool{
	"/api/report/generate": true,
}

// BuildHandler assembles the root router. WAFFLE calls it after config,
// the Mongo connection and the Startup hook have all completed.
//
// Page routes get session auth plus CSRF; /api routes get session auth,
// a CSRF exemption and CORS restricted to the configured origins.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Fresh user data on every request, so role changes and disabled
	// accounts take effect without waiting for the next login.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	// Template reloading stays on in dev for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	sessionsStore := sessions.New(deps.MongoDatabase)

	r := chi.NewRouter()

	r.Use(chimw.Timeout(requestTimeout))
	// CORS runs early so preflight requests never hit the session layer.
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(sessionMgr.LoadSessionUser)
	// Touch last_activity on the tracked session so the idle-session
	// cleanup job only closes sessions that really went quiet.
	r.Use(trackSessionActivity(sessionsStore, logger))
	r.Use(csrfMiddleware(appCfg, secure, logger))

	// Health probes for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /static serves from disk, /assets from files embedded in the
	// binary. Both support pre-compressed variants.
	r.Handle("/static/*", fileserver.Handler("/static", "static"))
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	homeHandler := homefeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	mountAuthRoutes(r, coreCfg, appCfg, deps, sessionMgr, errLog, sessionsStore, logger)

	// Signed-in areas: profile, monthly data entry, report archive.
	profileHandler := profilefeature.NewHandler(deps.MongoDatabase, sessionsStore, errLog, logger)
	r.Route("/profile", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", profilefeature.Routes(profileHandler, sessionMgr))
	})

	inputHandler := inputfeature.NewHandler(deps.MongoDatabase, deps.ReportGen, errLog, logger)
	r.Route("/input", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", inputfeature.Routes(inputHandler))
	})

	reportsHandler := reportsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Route("/reports", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", reportsfeature.Routes(reportsHandler))
	})

	settingsHandler := settingsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Route("/settings", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireRole("admin"))
		settingsHandler.MountRoutes(sr)
	})

	// JSON API for script clients.
	generateHandler := generateapifeature.NewHandler(deps.ReportGen, errLog, logger)
	r.Route("/api/report", func(sr chi.Router) {
		sr.Use(apicors.MiddlewareWithOrigins(appCfg.CORSAllowedOrigins...))
		sr.Mount("/", generateapifeature.Routes(generateHandler))
	})

	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}

// mountAuthRoutes wires login, logout and, when the client credentials
// are configured, the Google OAuth flow.
func mountAuthRoutes(
	r chi.Router,
	coreCfg *config.CoreConfig,
	appCfg AppConfig,
	deps DBDeps,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	sessionsStore *sessions.Store,
	logger *zap.Logger,
) {
	// Trust login bypasses credentials entirely; never honor it in prod.
	trustLoginEnabled := appCfg.TrustLoginEnabled && coreCfg.Env != "prod"

	loginHandler := loginfeature.NewHandler(
		deps.MongoDatabase,
		sessionMgr,
		errLog,
		sessionsStore,
		trustLoginEnabled,
		logger,
	)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, sessionsStore, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	if appCfg.GoogleClientID == "" || appCfg.GoogleClientSecret == "" {
		return
	}

	googleHandler := authgooglefeature.NewHandler(
		deps.MongoDatabase,
		sessionMgr,
		errLog,
		sessionsStore,
		oauthstate.New(deps.MongoDatabase),
		appCfg.GoogleClientID,
		appCfg.GoogleClientSecret,
		appCfg.BaseURL,
		logger,
	)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
}

// csrfMiddleware builds the CSRF layer. The cookie is named
// fitreport_csrf to avoid collisions with other services on the same
// domain; paths in csrfExemptPaths bypass the check.
func csrfMiddleware(appCfg AppConfig, secure bool, logger *zap.Logger) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("fitreport_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	if !secure {
		// Local dev serves the app and tooling from localhost ports.
		opts = append(opts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		opts = append(opts, csrf.Domain(appCfg.SessionDomain))
	}
	protect := csrf.Protect([]byte(appCfg.CSRFKey), opts...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if csrfExemptPaths[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			protected.ServeHTTP(w, req)
		})
	}
}

// trackSessionActivity records the user's last activity on the tracked
// session. Asset and health probes are skipped; failures only log.
func trackSessionActivity(sessionsStore *sessions.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user, ok := auth.CurrentUser(req)
			if ok && user.SessionToken() != "" && !isBackgroundPath(req.URL.Path) {
				ip := network.GetClientIP(req)
				if err := sessionsStore.UpdateActivity(req.Context(), user.SessionToken(), ip, req.UserAgent()); err != nil {
					logger.Debug("session activity update failed", zap.Error(err))
				}
			}
			next.ServeHTTP(w, req)
		})
	}
}

func isBackgroundPath(path string) bool {
	switch {
	case strings.HasPrefix(path, "/static/"), strings.HasPrefix(path, "/assets/"):
		return true
	case strings.HasPrefix(path, "/health"), path == "/ready", path == "/readyz", path == "/livez":
		return true
	}
	return false
}
