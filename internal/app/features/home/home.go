// internal/app/features/home/home.go
package home

import (
	"html/template"
	"net/http"

	settingsstore "github.com/vitalmetrics/fitreport/internal/app/store/settings"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/htmlsanitize"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the public landing page.
type Handler struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewHandler builds the landing page Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
	}
}

// HomeVM feeds the landing page template.
type HomeVM struct {
	viewdata.BaseVM
	LandingTitle string
	Content      template.HTML
	CanEdit      bool
}

// Routes mounts the landing page.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index renders the landing page from the stored site settings,
// falling back to the built-in defaults when nothing is configured.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	vm := HomeVM{
		BaseVM: viewdata.New(r),
	}
	vm.Title = "Home"

	if user, ok := auth.CurrentUser(r); ok && user.Role == "admin" {
		vm.CanEdit = true
	}

	vm.LandingTitle = models.DefaultLandingTitle
	vm.Content = htmlsanitize.SanitizeToHTML(models.DefaultLandingContent)

	settings, err := settingsstore.New(h.db).Get(r.Context())
	if err != nil {
		h.logger.Warn("could not load site settings for landing page", zap.Error(err))
	} else {
		if settings.LandingTitle != "" {
			vm.LandingTitle = settings.LandingTitle
		}
		if settings.LandingContent != "" {
			// Admins may enter the landing text without any markup.
			vm.Content = htmlsanitize.PrepareForDisplay(settings.LandingContent)
		}
	}

	templates.Render(w, r, "home/index", vm)
}
