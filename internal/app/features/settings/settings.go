// internal/app/features/settings/settings.go
package settings

import (
	"net/http"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	settingsstore "github.com/vitalmetrics/fitreport/internal/app/store/settings"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/htmlsanitize"
	"github.com/vitalmetrics/fitreport/internal/app/system/inputval"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides site settings handlers. Admin only.
type Handler struct {
	settingsStore *settingsstore.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new settings Handler.
func NewHandler(
	db *mongo.Database,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		settingsStore: settingsstore.New(db),
		errLog:        errLog,
		logger:        logger,
	}
}

// SettingsVM is the view model for the settings page.
type SettingsVM struct {
	viewdata.BaseVM
	Settings       *models.SiteSettings
	LandingTitle   string // Landing page title (with default if empty)
	LandingContent string // Landing page content
	Success        string
	Error          string
}

// MountRoutes mounts settings routes on the given router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.update)
}

// show displays the settings page.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.Get(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to get settings", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := h.buildVM(r, settings)

	if r.URL.Query().Get("success") == "1" {
		vm.Success = "Impostazioni salvate"
	}

	templates.Render(w, r, "settings/show", vm)
}

// MaxContentLength is the maximum allowed length for HTML content fields (100KB).
const MaxContentLength = 100000

// MaxFooterLength is the maximum allowed length for footer HTML (10KB).
const MaxFooterLength = 10000

// updateInput is the settings form, validated with inputval.
type updateInput struct {
	SiteName       string `validate:"required,max=200" label:"Nome del sito"`
	LandingTitle   string `validate:"max=200" label:"Titolo della pagina iniziale"`
	LandingContent string `validate:"max=100000" label:"Contenuto della pagina iniziale"`
	FooterHTML     string `validate:"max=10000" label:"HTML del footer"`
}

// update saves the settings.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	in := updateInput{
		SiteName:       r.FormValue("site_name"),
		LandingTitle:   r.FormValue("landing_title"),
		LandingContent: r.FormValue("landing_content"),
		FooterHTML:     r.FormValue("footer_html"),
	}

	if result := inputval.Validate(in); result.HasErrors() {
		h.renderSettingsWithError(w, r, result.First())
		return
	}

	settings := models.SiteSettings{
		SiteName:       in.SiteName,
		LandingTitle:   in.LandingTitle,
		LandingContent: htmlsanitize.Sanitize(in.LandingContent),
		FooterHTML:     htmlsanitize.Sanitize(in.FooterHTML),
	}

	if user, ok := auth.CurrentUser(r); ok {
		id := user.UserID()
		settings.UpdatedByID = &id
		settings.UpdatedByName = user.Name
	}

	if err := h.settingsStore.Save(r.Context(), settings); err != nil {
		h.errLog.Log(r, "failed to update settings", err)
		h.renderSettingsWithError(w, r, "Impossibile salvare le impostazioni")
		return
	}

	http.Redirect(w, r, "/settings?success=1", http.StatusSeeOther)
}

// renderSettingsWithError re-renders the settings page with an error message.
func (h *Handler) renderSettingsWithError(w http.ResponseWriter, r *http.Request, errMsg string) {
	settings, err := h.settingsStore.Get(r.Context())
	if err != nil {
		h.errLog.Log(r, "failed to get settings", err)
		settings = &models.SiteSettings{SiteName: models.DefaultSiteName}
	}

	vm := h.buildVM(r, settings)
	vm.Error = errMsg

	templates.Render(w, r, "settings/show", vm)
}

// buildVM creates the settings view model.
func (h *Handler) buildVM(r *http.Request, settings *models.SiteSettings) SettingsVM {
	landingTitle := settings.LandingTitle
	if landingTitle == "" {
		landingTitle = models.DefaultLandingTitle
	}

	vm := SettingsVM{
		BaseVM:         viewdata.New(r),
		Settings:       settings,
		LandingTitle:   landingTitle,
		LandingContent: settings.LandingContent,
	}
	vm.Title = "Impostazioni del sito"
	vm.SiteName = settings.SiteName
	vm.FooterHTML = htmlsanitize.SanitizeToHTML(settings.FooterHTML)
	return vm
}
