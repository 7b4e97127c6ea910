// internal/app/features/settings/templates.go
package settings

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

// The set registers at import time; the engine compiles it on Boot.
func init() {
	templates.Register(templates.Set{
		Name:     "settings",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
