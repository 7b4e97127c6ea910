// cmd/fitreport/main.go
package main

import (
	"context"

	"github.com/dalemusser/waffle/app"
	"github.com/vitalmetrics/fitreport/internal/app/bootstrap"
)

// main hands control to the WAFFLE lifecycle. All wiring lives in the
// bootstrap package hooks.
func main() {
	app.Run(context.Background(), bootstrap.Hooks)
}
