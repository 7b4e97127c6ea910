// Package generateapi provides the JSON report-generation endpoint.
//
// Endpoint:
//   - POST /api/report/generate - Generate a narrative from client-supplied data
//
// The endpoint is stateless: the caller sends the data map and the
// history and gets the generated text back. Nothing is written to the
// database. Authentication is the browser session cookie.
package generateapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/jsonutil"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/report"
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Error kinds carried in error responses.
const (
	KindInvalidInput    = "invalid_input"
	KindUnauthenticated = "unauthenticated"
	KindUpstream        = "upstream"
	KindInternal        = "internal"
)

// Handler handles report generation API requests.
type Handler struct {
	gen    *reportgen.Service
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new generateapi handler.
func NewHandler(gen *reportgen.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		gen:    gen,
		errLog: errLog,
		logger: logger,
	}
}

// Routes returns a router with the generation endpoint mounted.
// Mount under /api/report; the caller applies CORS and CSRF exemption.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/generate", h.GenerateHandler)
	return r
}

// historyEntry is one prior month in the request body.
type historyEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Metrics   map[string]string `json:"metrics"`
}

// generateRequest is the request body for POST /generate.
type generateRequest struct {
	ReportData     map[string]string `json:"reportData"`
	HistoricalData []historyEntry    `json:"historicalData"`
	Periodo        string            `json:"periodo"`
}

// generateResponse is the success body: the model text, unformatted.
type generateResponse struct {
	ReportText string `json:"reportText"`
}

// errorBody is the error envelope: {"error": {"kind": ..., "message": ...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func apiError(w http.ResponseWriter, status int, kind, msg string) {
	jsonutil.JSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

// GenerateHandler handles POST /generate.
//
// Request body:
//
//	{
//	    "reportData": { "peso": "82.5", "eta": "45", ... },
//	    "historicalData": [ { "timestamp": "...", "metrics": { ... } }, ... ],
//	    "periodo": "2024-03"
//	}
//
// The response carries the generated text verbatim; formatting and
// persistence are the caller's concern.
func (h *Handler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		apiError(w, http.StatusUnauthorized, KindUnauthenticated, "autenticazione richiesta")
		return
	}

	var in generateRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		apiError(w, http.StatusBadRequest, KindInvalidInput, "payload JSON non valido")
		return
	}

	periodo := strings.TrimSpace(in.Periodo)
	if _, err := models.PeriodTimestamp(periodo); err != nil {
		apiError(w, http.StatusBadRequest, KindInvalidInput, "periodo non valido, usa il formato YYYY-MM")
		return
	}
	if len(in.ReportData) == 0 {
		apiError(w, http.StatusBadRequest, KindInvalidInput, "dati mancanti per la generazione del report")
		return
	}

	history := make([]report.HistoryEntry, 0, len(in.HistoricalData))
	for _, e := range in.HistoricalData {
		history = append(history, report.HistoryEntry{
			Timestamp: e.Timestamp,
			Metrics:   e.Metrics,
		})
	}

	text, err := h.gen.Generate(r.Context(), reportgen.Input{
		Period:  periodo,
		Data:    in.ReportData,
		History: history,
	})
	if err != nil {
		if errors.Is(err, reportgen.ErrInvalidInput) {
			apiError(w, http.StatusBadRequest, KindInvalidInput, err.Error())
			return
		}
		// The cause is already logged by the generation service.
		apiError(w, http.StatusBadGateway, KindUpstream, reportgen.ErrUpstream.Error())
		return
	}

	h.logger.Info("report generated via API",
		zap.String("user_id", sessionUser.UserID().Hex()),
		zap.String("periodo", periodo))

	jsonutil.OK(w, generateResponse{ReportText: text})
}
