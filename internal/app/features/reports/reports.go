// internal/app/features/reports/reports.go
package reports

import (
	"errors"
	"html/template"
	"net/http"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	reportstore "github.com/vitalmetrics/fitreport/internal/app/store/reports"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/report"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the report archive and individual report pages.
// Reports are strictly per-user: a user only ever sees their own.
type Handler struct {
	reportStore *reportstore.Store
	errPages    *errorsfeature.Handler
	errLog      *errorsfeature.ErrorLogger
	logger      *zap.Logger
}

// NewHandler creates a new reports Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		reportStore: reportstore.New(db),
		errPages:    errorsfeature.NewHandler(),
		errLog:      errLog,
		logger:      logger,
	}
}

// reportRow is one archive entry.
type reportRow struct {
	Period string
	Label  string
}

// ListVM is the view model for the archive page.
type ListVM struct {
	viewdata.BaseVM
	Reports []reportRow
}

// ShowVM is the view model for a single report page.
type ShowVM struct {
	viewdata.BaseVM
	Period  string
	Label   string
	Content template.HTML
}

// Routes returns a chi.Router with report routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.showArchive)
	r.Get("/{period}", h.showReport)
	return r
}

// showArchive lists the user's finalized reports, newest first.
func (h *Handler) showArchive(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login?return=/reports", http.StatusSeeOther)
		return
	}

	finalized, err := h.reportStore.ListFinalized(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to list reports", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]reportRow, 0, len(finalized))
	for _, rep := range finalized {
		rows = append(rows, reportRow{
			Period: rep.Period,
			Label:  report.PeriodLabel(rep.Period),
		})
	}

	vm := ListVM{
		BaseVM:  viewdata.New(r),
		Reports: rows,
	}
	vm.Title = "Archivio Report"

	templates.Render(w, r, "reports/list", vm)
}

// showReport renders one generated report. The stored narrative was
// sanitized before it was written, so it renders as-is.
func (h *Handler) showReport(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	period := chi.URLParam(r, "period")

	rep, err := h.reportStore.Get(r.Context(), sessionUser.UserID(), period)
	if err != nil {
		if errors.Is(err, reportstore.ErrNotFound) {
			h.errPages.NotFound(w, r)
			return
		}
		h.errLog.Log(r, "failed to load report", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// A report without a narrative has nothing to show yet; send the
	// user back to the form to finish it.
	if !rep.Finalized() {
		http.Redirect(w, r, "/input", http.StatusSeeOther)
		return
	}

	vm := ShowVM{
		BaseVM:  viewdata.New(r),
		Period:  rep.Period,
		Label:   report.PeriodLabel(rep.Period),
		Content: template.HTML(rep.GeneratedHTML),
	}
	vm.Title = "Report " + vm.Label
	vm.BackURL = "/reports"

	templates.Render(w, r, "reports/show", vm)
}
