package testutil

import (
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/vitalmetrics/fitreport/internal/app/resources"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// BootTemplatesOnce boots the template engine for tests that render
// pages. The shared layout set is registered and the engine booted on
// the first call; later calls return the cached result. Feature
// template sets register themselves via init() when the feature
// package under test is imported.
func BootTemplatesOnce() error {
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()

		eng := templates.New(false)
		logger := zap.NewNop()

		if bootErr = eng.Boot(logger); bootErr != nil {
			return
		}
		templates.UseEngine(eng, logger)
	})
	return bootErr
}

// MustBootTemplates boots templates, failing the test on error.
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	if err := BootTemplatesOnce(); err != nil {
		t.Fatalf("boot templates: %v", err)
	}
}
