// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks is the single value handed to app.Run in main. WAFFLE invokes
// the functions in lifecycle order: config loading and validation,
// the Mongo connection, index creation, one-time startup work (shared
// templates, admin seeding, the task runner), router construction,
// and finally cleanup on shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "fitreport",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
