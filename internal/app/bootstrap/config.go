// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix scopes this app's environment variables, so mongo_uri
// is read from FITREPORT_MONGO_URI and so on.
const EnvVarPrefix = "FITREPORT"

// appConfigKeys declares every app-level setting. WAFFLE resolves each
// one from flags, environment, config files and the default, in that
// precedence order.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "fitreport", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "fitreport-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Base URL for OAuth redirect URIs
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for OAuth callbacks"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Trust login (development only): sign in with just a login_id
	{Name: "trust_login_enabled", Default: false, Desc: "Enable passwordless trust login (development only)"},

	// Report generation model configuration
	{Name: "gemini_api_key", Default: "", Desc: "API key for the Gemini generative language API"},
	{Name: "gemini_model", Default: "gemini-2.5-flash-lite", Desc: "Gemini model used for report generation"},
	{Name: "gemini_base_url", Default: "", Desc: "Override for the generative language API base URL (blank uses production)"},
	{Name: "gemini_timeout", Default: "5m", Desc: "Timeout for one report generation call"},

	// CORS for the JSON API
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed on /api routes (blank allows none)"},

	// Admin seeding configuration
	{Name: "seed_admin_email", Default: "", Desc: "Login ID of admin user to create on startup"},
	{Name: "seed_admin_name", Default: "Admin", Desc: "Name of admin user to create on startup"},
}

// LoadConfig resolves the core and app configuration through WAFFLE's
// loader and maps the raw values onto AppConfig.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 720*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		BaseURL: appValues.String("base_url"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		TrustLoginEnabled: appValues.Bool("trust_login_enabled"),

		GeminiAPIKey:  appValues.String("gemini_api_key"),
		GeminiModel:   appValues.String("gemini_model"),
		GeminiBaseURL: appValues.String("gemini_base_url"),
		GeminiTimeout: appValues.Duration("gemini_timeout", 5*time.Minute),

		CORSAllowedOrigins: splitOrigins(appValues.String("cors_allowed_origins")),

		SeedAdminEmail: appValues.String("seed_admin_email"),
		SeedAdminName:  appValues.String("seed_admin_name"),
	}

	return coreCfg, appCfg, nil
}

// splitOrigins parses the comma-separated origin list, dropping blanks.
func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ValidateConfig rejects configurations the app cannot run with. A
// missing Gemini key only warns; everything except report generation
// still works without it.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.GeminiAPIKey == "" {
		logger.Warn("gemini_api_key is not set; report generation will fail until configured")
	}

	if appCfg.TrustLoginEnabled {
		logger.Warn("trust login is enabled; do not use this in production")
	}

	return nil
}
