// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler ends a signed-in session.
type Handler struct {
	sessionMgr    *auth.SessionManager
	sessionsStore *sessions.Store
	logger        *zap.Logger
}

// NewHandler builds the logout Handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	sessionsStore *sessions.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessionMgr:    sessionMgr,
		sessionsStore: sessionsStore,
		logger:        logger,
	}
}

// Routes mounts the logout endpoint. GET is accepted alongside POST so
// a plain link in the header can sign the user out.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Post("/", h.handleLogout)
	r.Get("/", h.handleLogout)
	return r
}

// handleLogout closes the tracked session record, drops the cookie and
// sends the user back to the landing page.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.CurrentUser(r); ok {
		h.logger.Info("logout", zap.String("user_id", user.ID))

		if token := user.SessionToken(); token != "" {
			if err := h.sessionsStore.Close(r.Context(), token, sessions.EndReasonLogout); err != nil {
				h.logger.Warn("could not close tracked session", zap.Error(err))
			}
		}
	}

	h.sessionMgr.DestroySession(w, r)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
