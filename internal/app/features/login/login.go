// internal/app/features/login/login.go

// Package login implements the sign-in flows. The first form asks only
// for the login id; the user's auth method then decides whether they
// continue to the password form, to Google, or straight in (trust mode,
// development only).
package login

import (
	"net/http"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/authutil"
	"github.com/vitalmetrics/fitreport/internal/app/system/network"
	"github.com/vitalmetrics/fitreport/internal/app/system/viewdata"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Messages shown on the login forms.
const (
	msgUserNotFound   = "Utente non trovato"
	msgDisabled       = "L'account è disattivato"
	msgBadCredentials = "Credenziali non valide"
	msgUnavailable    = "Servizio temporaneamente non disponibile. Riprova."
)

type Handler struct {
	userStore         *userstore.Store
	sessionsStore     *sessions.Store
	sessionMgr        *auth.SessionManager
	errLog            *errorsfeature.ErrorLogger
	trustLoginEnabled bool
	logger            *zap.Logger
}

// NewHandler builds the login Handler. trustLoginEnabled must stay false
// outside development; it bypasses all credential checks.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	sessionsStore *sessions.Store,
	trustLoginEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:         userstore.New(db),
		sessionsStore:     sessionsStore,
		sessionMgr:        sessionMgr,
		errLog:            errLog,
		trustLoginEnabled: trustLoginEnabled,
		logger:            logger,
	}
}

// Routes mounts the login pages. The trust routes only exist when trust
// login is enabled, so in production they 404.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)

	r.Get("/password", h.showPasswordLogin)
	r.Post("/password", h.handlePasswordLogin)

	if h.trustLoginEnabled {
		r.Get("/trust", h.showTrustLogin)
		r.Post("/trust", h.handleTrustLogin)
	}

	return r
}

// LoginVM feeds the login id form.
type LoginVM struct {
	viewdata.BaseVM
	Error     string
	LoginID   string
	ReturnURL string
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, errMsg, loginID, returnURL string) {
	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		Error:     errMsg,
		LoginID:   loginID,
		ReturnURL: returnURL,
	}
	vm.Title = "Accedi"
	templates.Render(w, r, "login/index", vm)
}

// showLogin renders the login form, translating an error code from a
// redirect (for example from the OAuth callback) into a message.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	var errMsg string
	switch code := r.URL.Query().Get("error"); code {
	case "":
	case "invalid_token", "invalid_state":
		errMsg = "Link non valido o scaduto. Riprova."
	case "account_disabled":
		errMsg = msgDisabled + "."
	case "user_not_found":
		errMsg = msgUserNotFound + "."
	case "oauth_error", "token_exchange_failed", "userinfo_failed", "session_error":
		errMsg = "Accesso con Google non riuscito. Riprova."
	case "service_unavailable", "database_error":
		errMsg = msgUnavailable
	default:
		errMsg = code
	}

	h.renderLogin(w, r, errMsg, "", query.Get(r, "return"))
}

// handleLogin resolves the login id and routes the user to their auth
// method.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "parse login form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := r.FormValue("login_id")
	returnURL := r.FormValue("return")

	if loginID == "" {
		h.renderLogin(w, r, "Inserisci il tuo ID di accesso", "", returnURL)
		return
	}

	user, errMsg := h.lookupActiveUser(r, loginID, msgUserNotFound)
	if errMsg != "" {
		h.renderLogin(w, r, errMsg, loginID, returnURL)
		return
	}

	returnParam := ""
	if returnURL != "" {
		returnParam = "?return=" + returnURL
	}

	switch user.AuthMethod {
	case "trust":
		h.signIn(w, r, user.ID, user.Role, returnURL)
	case "google":
		http.Redirect(w, r, "/auth/google"+returnParam, http.StatusSeeOther)
	default:
		// Password is also the fallback when auth_method is unset.
		http.Redirect(w, r, "/login/password?login_id="+loginID+returnParam, http.StatusSeeOther)
	}
}

// lookupActiveUser fetches the user behind a login id. The second return
// value is the message for the form when sign-in cannot continue; the
// caller chooses the not-found wording so the password flow can keep it
// indistinguishable from a wrong password.
func (h *Handler) lookupActiveUser(r *http.Request, loginID, notFoundMsg string) (user *models.User, errMsg string) {
	u, err := h.userStore.GetByLoginID(r.Context(), loginID)
	switch {
	case err == mongo.ErrNoDocuments:
		h.logger.Info("login failed, unknown login id",
			zap.String("login_id", loginID),
			zap.String("ip", network.GetClientIP(r)))
		return nil, notFoundMsg
	case err != nil:
		h.errLog.Log(r, "login lookup", err)
		return nil, msgUnavailable
	}

	if u.Status != "active" {
		h.logger.Info("login failed, account disabled",
			zap.String("user_id", u.ID.Hex()),
			zap.String("ip", network.GetClientIP(r)))
		return nil, msgDisabled
	}
	return u, ""
}

// TrustLoginVM feeds the development-only trust form.
type TrustLoginVM struct {
	viewdata.BaseVM
	Error   string
	LoginID string
}

func (h *Handler) renderTrustLogin(w http.ResponseWriter, r *http.Request, errMsg, loginID string) {
	vm := TrustLoginVM{
		BaseVM:  viewdata.New(r),
		Error:   errMsg,
		LoginID: loginID,
	}
	vm.Title = "Accesso di sviluppo"
	templates.Render(w, r, "login/trust", vm)
}

func (h *Handler) showTrustLogin(w http.ResponseWriter, r *http.Request) {
	h.renderTrustLogin(w, r, "", "")
}

// handleTrustLogin signs any active user in without credentials. Only
// reachable when trust login is enabled.
func (h *Handler) handleTrustLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "parse trust login form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := r.FormValue("login_id")

	user, errMsg := h.lookupActiveUser(r, loginID, msgUserNotFound)
	if errMsg != "" {
		h.renderTrustLogin(w, r, errMsg, loginID)
		return
	}

	h.signIn(w, r, user.ID, user.Role, "")
}

// PasswordLoginVM feeds the password form.
type PasswordLoginVM struct {
	viewdata.BaseVM
	Error     string
	LoginID   string
	ReturnURL string
}

func (h *Handler) renderPasswordLogin(w http.ResponseWriter, r *http.Request, errMsg, loginID, returnURL string) {
	vm := PasswordLoginVM{
		BaseVM:    viewdata.New(r),
		Error:     errMsg,
		LoginID:   loginID,
		ReturnURL: returnURL,
	}
	vm.Title = "Inserisci la password"
	templates.Render(w, r, "login/password", vm)
}

func (h *Handler) showPasswordLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPasswordLogin(w, r, "", r.URL.Query().Get("login_id"), query.Get(r, "return"))
}

// handlePasswordLogin checks the password. An unknown login id gets the
// same message as a wrong password, so the form does not reveal which
// ids exist.
func (h *Handler) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "parse password form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := r.FormValue("login_id")
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	user, errMsg := h.lookupActiveUser(r, loginID, msgBadCredentials)
	if errMsg != "" {
		h.renderPasswordLogin(w, r, errMsg, loginID, returnURL)
		return
	}

	if user.PasswordHash == nil || !authutil.CheckPassword(password, *user.PasswordHash) {
		h.logger.Info("login failed, wrong password",
			zap.String("user_id", user.ID.Hex()),
			zap.String("ip", network.GetClientIP(r)))
		h.renderPasswordLogin(w, r, msgBadCredentials, loginID, returnURL)
		return
	}

	h.signIn(w, r, user.ID, user.Role, returnURL)
}

// signIn establishes the session and redirects to the return URL, with
// the data entry page as the safe default.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role, returnURL string) {
	if err := h.createTrackedSession(w, r, userID, role); err != nil {
		h.errLog.Log(r, "create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("login success", zap.String("user_id", userID.Hex()))
	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/input"), http.StatusSeeOther)
}

// createTrackedSession establishes the cookie session and records the
// tracked session document. Tracking is best effort; a write failure
// must not block the login itself.
func (h *Handler) createTrackedSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role string) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}

	if err := h.sessionMgr.CreateSession(w, r, userID, role, token); err != nil {
		return err
	}

	now := time.Now()
	tracked := sessions.Session{
		Token:        token,
		UserID:       userID,
		IPAddress:    network.GetClientIP(r),
		UserAgent:    r.UserAgent(),
		LoginAt:      now,
		LastActivity: now,
		ExpiresAt:    now.Add(30 * 24 * time.Hour),
	}
	if err := h.sessionsStore.Create(r.Context(), tracked); err != nil {
		h.logger.Warn("could not track session", zap.Error(err))
	}
	return nil
}
