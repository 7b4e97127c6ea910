// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig carries the app-level settings loaded by LoadConfig.
// Framework concerns (ports, TLS, log level, body limits) live in
// WAFFLE's CoreConfig and are not duplicated here.
type AppConfig struct {
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// SessionKey signs the session cookie and must be strong in prod;
	// a blank SessionDomain means the current host.
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration

	CSRFKey string

	// BaseURL is the externally visible origin, used to derive OAuth
	// callback URLs.
	BaseURL string

	GoogleClientID     string
	GoogleClientSecret string

	// TrustLoginEnabled allows signing in with just a login id. For
	// local development only; BuildHandler ignores it in prod.
	TrustLoginEnabled bool

	// Gemini settings for report generation. A blank base URL means the
	// production API endpoint.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration

	// CORSAllowedOrigins lists origins allowed on the /api routes.
	CORSAllowedOrigins []string

	// SeedAdminEmail, when set, is the login id of the admin account
	// ensured at startup.
	SeedAdminEmail string
	SeedAdminName  string
}
