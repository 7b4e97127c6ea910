// internal/app/features/health/health.go

// Package health exposes liveness and readiness probes. The readiness
// probes ping MongoDB; the generation backend is deliberately not
// probed, since the app stays useful for data entry and the archive
// even when the model is down.
package health

import (
	"context"
	"net/http"

	"github.com/vitalmetrics/fitreport/internal/app/system/jsonutil"
	"github.com/vitalmetrics/fitreport/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type Handler struct {
	mongoClient *mongo.Client
	logger      *zap.Logger
}

func NewHandler(mongoClient *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{mongoClient: mongoClient, logger: logger}
}

// Response is the body of the full health check. Services maps each
// dependency to "ok" or "unavailable".
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes mounts /health (full check), /health/ready and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the probe paths Kubernetes conventionally
// expects at the root: /ready and /readyz for readiness, /livez for
// liveness.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) pingMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	return h.mongoClient.Ping(ctx, readpref.Primary())
}

// Check reports per-dependency status. Any unavailable dependency
// degrades the overall status and the response code.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: map[string]string{"mongodb": "ok"},
	}

	if err := h.pingMongo(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready answers readiness probes: 200 when Mongo responds, 503
// otherwise.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.pingMongo(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ready"}`))
}

// Live answers liveness probes; reaching the handler at all is the
// signal.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"alive"}`))
}
