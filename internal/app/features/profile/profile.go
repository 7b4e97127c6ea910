// internal/app/features/profile/profile.go
package profile

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	profilestore "github.com/vitalmetrics/fitreport/internal/app/store/profile"
	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/authutil"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/report"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides profile handlers.
type Handler struct {
	userStore     *userstore.Store
	profileStore  *profilestore.Store
	sessionsStore *sessions.Store
	errLog        *errorsfeature.ErrorLogger
	logger        *zap.Logger
}

// NewHandler creates a new profile Handler.
func NewHandler(db *mongo.Database, sessionsStore *sessions.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:     userstore.New(db),
		profileStore:  profilestore.New(db),
		sessionsStore: sessionsStore,
		errLog:        errLog,
		logger:        logger,
	}
}

// profileFieldVM is one editable health attribute with its current value.
type profileFieldVM struct {
	report.ProfileField
	Value string
}

// ProfileVM is the view model for the profile page.
type ProfileVM struct {
	viewdata.BaseVM

	// User info (read-only display)
	FullName   string
	AuthMethod string

	// Health attributes used in report generation
	HealthFields []profileFieldVM

	// Password section (only shown for password auth)
	ShowPasswordSection bool
	PasswordRules       string

	// Active sessions
	Sessions []sessionRow

	// Form state
	Success template.HTML
	Error   template.HTML
}

// Routes returns a chi.Router with profile routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showProfile)
	r.Post("/", h.handleSaveProfile)
	r.Post("/password", h.handleChangePassword)

	// Session management (sessions are embedded in the profile page)
	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
	})
	r.Post("/sessions/{id}/revoke", h.revokeSession)
	r.Post("/sessions/revoke-all", h.revokeAllSessions(sessionMgr))

	return r
}

// showProfile displays the user profile.
func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	healthProfile, err := h.profileStore.Get(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get health profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Load active sessions
	sessionsList, err := h.sessionsStore.ListByUser(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to list sessions", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	currentToken := sessionUser.SessionToken()
	sessionRows := make([]sessionRow, 0, len(sessionsList))
	for _, s := range sessionsList {
		sessionRows = append(sessionRows, sessionRow{
			ID:           s.ID.Hex(),
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			Device:       parseDevice(s.UserAgent),
			LastActivity: s.LastActivity,
			IsCurrent:    s.Token == currentToken,
		})
	}

	vm := buildProfileVM(r, user, healthProfile)
	vm.Sessions = sessionRows

	// Check for success message in query params
	switch r.URL.Query().Get("success") {
	case "password":
		vm.Success = "Password aggiornata."
	case "profile":
		vm.Success = "Profilo salvato."
	case "revoked":
		vm.Success = "Sessione revocata."
	case "revoked_all":
		vm.Success = "Tutte le altre sessioni sono state chiuse."
	}

	// Check for error message in query params
	switch r.URL.Query().Get("error") {
	case "use_logout":
		vm.Error = "Per chiudere la sessione corrente usa il logout."
	case "failed":
		vm.Error = "Revoca della sessione non riuscita. Riprova."
	}

	templates.Render(w, r, "profile/show", vm)
}

// handleSaveProfile merge-writes the health attribute form. Fields left
// untouched keep their stored value.
func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	fields := make(map[string]string)
	for _, f := range report.ProfileFields() {
		if !r.Form.Has(f.Key) {
			continue
		}
		v := strings.TrimSpace(r.FormValue(f.Key))
		if f.Options != nil && v != "" && !containsOption(f.Options, v) {
			h.renderProfileError(w, r, sessionUser, "Valore non valido per "+f.Label+".")
			return
		}
		fields[f.Key] = v
	}

	if err := h.profileStore.Merge(r.Context(), sessionUser.UserID(), fields); err != nil {
		h.errLog.Log(r, "failed to save health profile", err)
		h.renderProfileError(w, r, sessionUser, "Salvataggio del profilo non riuscito.")
		return
	}

	http.Redirect(w, r, "/profile?success=profile", http.StatusSeeOther)
}

// handleChangePassword processes the password change form.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Only allow password change for password auth users
	if user.AuthMethod != "password" {
		h.renderProfileErrorWithUser(w, r, sessionUser, user, "Il cambio password è disponibile solo per gli account con password.")
		return
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirmPassword := r.FormValue("confirm_password")

	// Verify current password
	if user.PasswordHash != nil {
		if !authutil.CheckPassword(currentPassword, *user.PasswordHash) {
			h.renderProfileErrorWithUser(w, r, sessionUser, user, "La password attuale non è corretta.")
			return
		}
	}

	// Validate new password
	if err := authutil.ValidatePassword(newPassword); err != nil {
		h.renderProfileErrorWithUser(w, r, sessionUser, user, err.Error())
		return
	}

	// Check passwords match
	if newPassword != confirmPassword {
		h.renderProfileErrorWithUser(w, r, sessionUser, user, "Le nuove password non coincidono.")
		return
	}

	// Don't allow reusing the current password
	if user.PasswordHash != nil && authutil.CheckPassword(newPassword, *user.PasswordHash) {
		h.renderProfileErrorWithUser(w, r, sessionUser, user, "La nuova password deve essere diversa da quella attuale.")
		return
	}

	// Hash and save the new password
	hash, err := authutil.HashPassword(newPassword)
	if err != nil {
		h.errLog.Log(r, "failed to hash password", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), sessionUser.UserID(), hash); err != nil {
		h.errLog.Log(r, "failed to update password", err)
		h.renderProfileErrorWithUser(w, r, sessionUser, user, "Aggiornamento della password non riuscito.")
		return
	}

	http.Redirect(w, r, "/profile?success=password", http.StatusSeeOther)
}

// buildProfileVM creates the profile view model from a user and their health profile.
func buildProfileVM(r *http.Request, user *models.User, healthProfile *models.Profile) ProfileVM {
	values := healthProfile.PromptData()
	healthFields := make([]profileFieldVM, 0, len(report.ProfileFields()))
	for _, f := range report.ProfileFields() {
		healthFields = append(healthFields, profileFieldVM{
			ProfileField: f,
			Value:        values[f.Key],
		})
	}

	return ProfileVM{
		BaseVM:              viewdata.New(r),
		FullName:            user.FullName,
		AuthMethod:          formatAuthMethod(user.AuthMethod),
		HealthFields:        healthFields,
		ShowPasswordSection: user.AuthMethod == "password",
		PasswordRules:       authutil.PasswordRules(),
	}
}

// renderProfileError re-renders the profile page with an error message,
// loading the user and health profile fresh.
func (h *Handler) renderProfileError(w http.ResponseWriter, r *http.Request, sessionUser *auth.SessionUser, errMsg string) {
	user, err := h.userStore.GetByID(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get user", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderProfileErrorWithUser(w, r, sessionUser, user, errMsg)
}

// renderProfileErrorWithUser re-renders the profile page with an error message.
func (h *Handler) renderProfileErrorWithUser(w http.ResponseWriter, r *http.Request, sessionUser *auth.SessionUser, user *models.User, errMsg string) {
	healthProfile, err := h.profileStore.Get(r.Context(), sessionUser.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to get health profile", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	vm := buildProfileVM(r, user, healthProfile)
	vm.Error = template.HTML(template.HTMLEscapeString(errMsg))
	templates.Render(w, r, "profile/show", vm)
}

// formatAuthMethod returns a human-readable label for the auth method.
func formatAuthMethod(method string) string {
	switch method {
	case "password":
		return "Password"
	case "google":
		return "Google"
	case "trust":
		return "Fidato"
	default:
		return method
	}
}

// containsOption reports whether v is one of the allowed option values.
func containsOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// sessionRow represents a session in the list.
type sessionRow struct {
	ID           string
	IPAddress    string
	UserAgent    string
	Device       string
	LastActivity time.Time
	IsCurrent    bool
}

// revokeSession revokes a specific session.
func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Get the session to verify ownership
	session, err := h.sessionsStore.GetByID(r.Context(), objID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	// Verify the session belongs to the current user
	if session.UserID != sessionUser.UserID() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Don't allow revoking the current session via this endpoint
	if session.Token == sessionUser.SessionToken() {
		http.Redirect(w, r, "/profile?error=use_logout", http.StatusSeeOther)
		return
	}

	if err := h.sessionsStore.DeleteByID(r.Context(), objID); err != nil {
		h.errLog.Log(r, "failed to revoke session", err)
		http.Redirect(w, r, "/profile?error=failed", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/profile?success=revoked", http.StatusSeeOther)
}

// revokeAllSessions returns a handler that revokes all sessions except the current one.
func (h *Handler) revokeAllSessions(sessionMgr *auth.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionUser, ok := auth.CurrentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		currentToken := sessionUser.SessionToken()
		if err := h.sessionsStore.DeleteByUserExcept(r.Context(), sessionUser.UserID(), currentToken); err != nil {
			h.errLog.Log(r, "failed to revoke all sessions", err)
			http.Redirect(w, r, "/profile?error=failed", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, "/profile?success=revoked_all", http.StatusSeeOther)
	}
}

// parseDevice turns a user agent string into a short label for the
// session list. Mobile devices are named directly; desktops get an
// OS (browser) pair.
func parseDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case ua == "":
		return "Dispositivo sconosciuto"
	case strings.Contains(ua, "iphone"):
		return "iPhone"
	case strings.Contains(ua, "ipad"):
		return "iPad"
	case strings.Contains(ua, "android"):
		if strings.Contains(ua, "mobile") {
			return "Telefono Android"
		}
		return "Tablet Android"
	}

	var os string
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		os = "Mac"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		return "Dispositivo sconosciuto"
	}

	// Order matters: Chrome user agents also mention Safari, and Edge
	// ones mention Chrome.
	var browser string
	switch {
	case strings.Contains(ua, "edge"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		return os
	}

	return os + " (" + browser + ")"
}
