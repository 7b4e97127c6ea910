// internal/app/features/input/input.go
package input

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	profilestore "github.com/vitalmetrics/fitreport/internal/app/store/profile"
	reportstore "github.com/vitalmetrics/fitreport/internal/app/store/reports"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/htmlsanitize"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/report"
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GenericGenerationError is shown whenever generation fails, regardless
// of cause. The underlying error goes to the log only.
const GenericGenerationError = "Si è verificato un errore durante la generazione del report da parte dell'IA."

// Handler provides the monthly data entry form and the submit flow
// that persists metrics and generates the report narrative.
type Handler struct {
	reportStore  *reportstore.Store
	profileStore *profilestore.Store
	gen          *reportgen.Service
	errLog       *errorsfeature.ErrorLogger
	logger       *zap.Logger
}

// NewHandler creates a new input Handler.
func NewHandler(db *mongo.Database, gen *reportgen.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		reportStore:  reportstore.New(db),
		profileStore: profilestore.New(db),
		gen:          gen,
		errLog:       errLog,
		logger:       logger,
	}
}

// fieldVM is one metric input with its submitted value (for re-render).
type fieldVM struct {
	report.Field
	Value string
}

// sectionVM is one form section.
type sectionVM struct {
	Title  string
	Fields []fieldVM
}

// profileFieldVM is one profile input with its current value.
type profileFieldVM struct {
	report.ProfileField
	Value string
}

// FormVM is the view model for the data entry form.
type FormVM struct {
	viewdata.BaseVM
	Period          string
	ProfileFields   []profileFieldVM
	Sections        []sectionVM
	ExistingPeriods []string // periods that already have a report, for the overwrite confirm
	Error           template.HTML
	Notice          string
}

// Routes returns a chi.Router with input routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.showForm)
	r.Post("/", h.handleSubmit)
	return r
}

// showForm renders the empty monthly form for the current period.
func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	vm := h.buildFormVM(r, sessionUser.UserID(), time.Now().UTC().Format("2006-01"), nil)
	templates.Render(w, r, "input/form", vm)
}

// handleSubmit persists the submitted metrics, then generates and
// stores the report narrative. Metrics are written before generation
// is attempted, so a failed generation never loses entered data.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	userID := sessionUser.UserID()

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	period := strings.TrimSpace(r.FormValue("period"))
	metrics := collectMetrics(r)
	profileVals := collectProfileFields(r)

	// Re-renders echo everything the user typed, profile fields included.
	submitted := make(map[string]string, len(metrics)+len(profileVals))
	for k, v := range metrics {
		submitted[k] = v
	}
	for k, v := range profileVals {
		submitted[k] = v
	}

	if _, err := models.PeriodTimestamp(period); err != nil {
		h.renderFormError(w, r, userID, period, submitted, "Seleziona un periodo valido (anno e mese).")
		return
	}

	// Overwrite guard. The form sets overwrite=1 after the user
	// confirms; without it an existing report is left untouched.
	exists, err := h.reportStore.Exists(r.Context(), userID, period)
	if err != nil {
		h.errLog.Log(r, "failed to check report existence", err)
		h.renderFormError(w, r, userID, period, submitted, "Si è verificato un errore. Riprova.")
		return
	}
	if exists && r.FormValue("overwrite") != "1" {
		h.renderFormError(w, r, userID, period, submitted,
			"Esiste già un report per "+period+". Conferma la sovrascrittura per procedere.")
		return
	}

	// Persist the profile and the metrics first. From here on the
	// submission is saved even if generation fails.
	if len(profileVals) > 0 {
		if err := h.profileStore.Merge(r.Context(), userID, profileVals); err != nil {
			h.errLog.Log(r, "failed to save profile", err)
			h.renderFormError(w, r, userID, period, submitted, "Salvataggio dei dati non riuscito. Riprova.")
			return
		}
	}
	if err := h.reportStore.MergeMetrics(r.Context(), userID, period, metrics); err != nil {
		h.errLog.Log(r, "failed to save metrics", err)
		h.renderFormError(w, r, userID, period, submitted, "Salvataggio dei dati non riuscito. Riprova.")
		return
	}

	if err := h.generateAndStore(r, userID, period, metrics); err != nil {
		// Metrics are already saved; tell the user that much.
		vm := h.buildFormVM(r, userID, period, submitted)
		vm.Error = template.HTML(template.HTMLEscapeString(GenericGenerationError))
		vm.Notice = "I dati inseriti sono stati salvati. Puoi riprovare la generazione inviando di nuovo il modulo."
		templates.Render(w, r, "input/form", vm)
		return
	}

	http.Redirect(w, r, "/reports/"+period, http.StatusSeeOther)
}

// generateAndStore runs the model call for one saved period and stores
// the sanitized narrative. One attempt, no retry.
func (h *Handler) generateAndStore(r *http.Request, userID primitive.ObjectID, period string, metrics map[string]string) error {
	ctx := r.Context()

	healthProfile, err := h.profileStore.Get(ctx, userID)
	if err != nil {
		h.errLog.Log(r, "failed to load profile for generation", err)
		return err
	}

	// Profile attributes and this month's metrics share one data map.
	data := healthProfile.PromptData()
	for k, v := range metrics {
		data[k] = v
	}

	history, err := h.loadHistory(r, userID, period)
	if err != nil {
		return err
	}

	text, err := h.gen.Generate(ctx, reportgen.Input{
		Period:  period,
		Data:    data,
		History: history,
	})
	if err != nil {
		return err
	}

	html := htmlsanitize.Sanitize(report.FormatHTML(text))

	if err := h.reportStore.SetGeneratedHTML(ctx, userID, period, html); err != nil {
		h.errLog.Log(r, "failed to store generated report", err)
		return err
	}

	h.logger.Info("monthly report generated",
		zap.String("user_id", userID.Hex()),
		zap.String("period", period))
	return nil
}

// loadHistory returns the user's prior reports as prompt history,
// excluding the period being generated.
func (h *Handler) loadHistory(r *http.Request, userID primitive.ObjectID, period string) ([]report.HistoryEntry, error) {
	prior, err := h.reportStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.errLog.Log(r, "failed to load report history", err)
		return nil, err
	}

	history := make([]report.HistoryEntry, 0, len(prior))
	for _, p := range prior {
		if p.Period == period {
			continue
		}
		history = append(history, report.HistoryEntry{
			Timestamp: p.Timestamp,
			Metrics:   p.Metrics,
		})
	}
	return history, nil
}

// collectProfileFields extracts submitted profile values from the form.
// Only fields actually present in the submission are returned, so an
// omitted field never clears a stored value.
func collectProfileFields(r *http.Request) map[string]string {
	vals := make(map[string]string)
	for _, f := range report.ProfileFields() {
		if !r.Form.Has(f.Key) {
			continue
		}
		vals[f.Key] = strings.TrimSpace(r.FormValue(f.Key))
	}
	return vals
}

// collectMetrics extracts non-empty recognized metric values from the form.
func collectMetrics(r *http.Request) map[string]string {
	metrics := make(map[string]string)
	for _, key := range report.MetricKeys() {
		v := strings.TrimSpace(r.FormValue(key))
		if v != "" {
			metrics[key] = v
		}
	}
	return metrics
}

// buildFormVM creates the form view model, re-filling submitted values.
func (h *Handler) buildFormVM(r *http.Request, userID primitive.ObjectID, period string, values map[string]string) FormVM {
	sections := make([]sectionVM, 0, len(report.Sections()))
	for _, sec := range report.Sections() {
		fields := make([]fieldVM, 0, len(sec.Fields))
		for _, f := range sec.Fields {
			fields = append(fields, fieldVM{Field: f, Value: values[f.Key]})
		}
		sections = append(sections, sectionVM{Title: sec.Title, Fields: fields})
	}

	vm := FormVM{
		BaseVM:   viewdata.New(r),
		Period:   period,
		Sections: sections,
	}
	vm.Title = "Inserimento Dati"

	// Profile fields pre-fill from the stored profile; resubmitted
	// values win on a re-render.
	var stored map[string]string
	if healthProfile, err := h.profileStore.Get(r.Context(), userID); err == nil {
		stored = healthProfile.PromptData()
	} else {
		h.logger.Warn("failed to load profile for form", zap.Error(err))
	}
	for _, f := range report.ProfileFields() {
		value := stored[f.Key]
		if v, ok := values[f.Key]; ok {
			value = v
		}
		vm.ProfileFields = append(vm.ProfileFields, profileFieldVM{ProfileField: f, Value: value})
	}

	// Existing periods feed the client-side overwrite confirm.
	if existing, err := h.reportStore.ListByUser(r.Context(), userID); err == nil {
		periods := make([]string, 0, len(existing))
		for _, e := range existing {
			periods = append(periods, e.Period)
		}
		vm.ExistingPeriods = periods
	} else {
		h.logger.Warn("failed to list existing periods", zap.Error(err))
	}

	return vm
}

// renderFormError re-renders the form with an error message and the
// submitted values intact.
func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, period string, values map[string]string, errMsg string) {
	vm := h.buildFormVM(r, userID, period, values)
	vm.Error = template.HTML(template.HTMLEscapeString(errMsg))
	templates.Render(w, r, "input/form", vm)
}
