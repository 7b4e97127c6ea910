// internal/app/features/authgoogle/authgoogle.go

// Package authgoogle implements the Google OAuth login flow. Accounts
// are never created from Google data; the email must already belong to
// a registered user.
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	"github.com/vitalmetrics/fitreport/internal/app/store/oauthstate"
	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/network"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler drives the OAuth round trip with Google.
type Handler struct {
	userStore       *userstore.Store
	sessionMgr      *auth.SessionManager
	errLog          *errorsfeature.ErrorLogger
	sessionsStore   *sessions.Store
	oauthStateStore *oauthstate.Store
	oauthConfig     *oauth2.Config
	logger          *zap.Logger
}

// NewHandler builds the Google OAuth Handler. baseURL is the externally
// visible origin the callback URL is derived from.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	sessionsStore *sessions.Store,
	oauthStateStore *oauthstate.Store,
	clientID string,
	clientSecret string,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:       userstore.New(db),
		sessionMgr:      sessionMgr,
		errLog:          errLog,
		sessionsStore:   sessionsStore,
		oauthStateStore: oauthStateStore,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// Routes mounts the OAuth entry point and the callback.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.startAuth)
	r.Get("/callback", h.handleCallback)
	return r
}

// failLogin sends the user back to the login form carrying an error code
// the form knows how to translate.
func failLogin(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
}

// startAuth issues a single-use state token and hands the user off to
// Google's consent screen.
func (h *Handler) startAuth(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.errLog.Log(r, "generate oauth state", err)
		failLogin(w, r, "oauth_error")
		return
	}

	if err := h.oauthStateStore.Create(r.Context(), state); err != nil {
		h.errLog.Log(r, "store oauth state", err)
		failLogin(w, r, "oauth_error")
		return
	}

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleCallback finishes the flow: verify the state, trade the code for
// a token, read the Google profile and sign the matching user in.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	// A denial from Google arrives as an error parameter. Surface it
	// before anything else; there may be no state to verify in that case.
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.logger.Warn("oauth error from google", zap.String("error", errMsg))
		failLogin(w, r, errMsg)
		return
	}

	state := r.URL.Query().Get("state")
	if !h.oauthStateStore.Verify(r.Context(), state) {
		h.logger.Warn("oauth state did not verify")
		failLogin(w, r, "invalid_state")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.errLog.Log(r, "exchange oauth code", err)
		failLogin(w, r, "token_exchange_failed")
		return
	}

	userInfo, err := h.fetchUserInfo(r.Context(), token)
	if err != nil {
		h.errLog.Log(r, "fetch google user info", err)
		failLogin(w, r, "userinfo_failed")
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), userInfo.Email)
	switch {
	case err == mongo.ErrNoDocuments:
		// Only pre-registered members may sign in with Google.
		h.logger.Info("google login rejected, no matching account",
			zap.String("email", userInfo.Email),
			zap.String("ip", network.GetClientIP(r)))
		failLogin(w, r, "user_not_found")
		return
	case err != nil:
		h.errLog.Log(r, "look up user by email", err)
		failLogin(w, r, "database_error")
		return
	}

	if user.Status != "active" {
		h.logger.Info("google login rejected, account disabled",
			zap.String("user_id", user.ID.Hex()))
		failLogin(w, r, "account_disabled")
		return
	}

	if err := h.createTrackedSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "create session", err)
		failLogin(w, r, "session_error")
		return
	}

	h.logger.Info("login success", zap.String("user_id", user.ID.Hex()))
	http.Redirect(w, r, "/input", http.StatusSeeOther)
}

// GoogleUserInfo is the subset of Google's userinfo response we read.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}

	var userInfo GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}
	return &userInfo, nil
}

// generateState returns 32 random bytes, URL-safe base64 encoded.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
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
