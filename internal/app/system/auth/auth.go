// Package auth holds the cookie-session layer: the SessionManager, the
// middleware that loads and guards the current user, and the request
// context helpers handlers use to read it.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/vitalmetrics/fitreport/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Session cookie value keys.
const (
	isAuthKey       = "is_authenticated"
	userIDKey       = "user_id"
	userName        = "user_name"
	userLoginID     = "user_login_id"
	userRole        = "user_role"
	sessionTokenKey = "session_token"
)

// Session error classes, used to pick a log level. An expired cookie is
// routine; a bad MAC is worth a warning.
type sessionErrorType int

const (
	sessionErrUnknown sessionErrorType = iota
	sessionErrExpired
	sessionErrTampered
	sessionErrCorrupted
	sessionErrBackend
)

// SessionManager wraps the cookie store with the app's session policy.
// Build one with NewSessionManager.
type SessionManager struct {
	store       *sessions.CookieStore
	logger      *zap.Logger
	name        string
	userFetcher UserFetcher
}

// UserFetcher loads fresh user data for a session on each request.
// Implementations return nil when the user is gone or disabled, which
// invalidates the session.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// NewSessionManager builds the session layer. The cookie is HttpOnly
// with SameSite=Lax; secure additionally marks it Secure and requires a
// strong signing key (>=32 chars, not a known placeholder). Weak keys
// fail startup in secure mode and only warn in dev. An empty name falls
// back to "fitreport-session".
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, &SessionConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	if weak := len(sessionKey) < 32 || isDefaultKey(sessionKey); weak {
		if secure {
			return nil, &SessionConfigError{
				Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
			}
		}
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = "fitreport-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// Lax allows top-level navigations (a link from an email) while
		// still blocking cross-site POSTs.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{store: store, logger: logger, name: name}, nil
}

// SessionConfigError reports invalid session configuration.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string {
	return e.Message
}

// SetUserFetcher installs the per-request user loader. Call after the
// database is connected.
func (sm *SessionManager) SetUserFetcher(uf UserFetcher) {
	sm.userFetcher = uf
}

// SessionUser is the authenticated user as seen by handlers. The data
// is refetched from the database on each request so role changes and
// disabled accounts take effect immediately.
type SessionUser struct {
	ID      string
	Name    string
	LoginID string
	Role    string
	Token   string // token identifying this browser session
}

// UserID returns the user's ID as an ObjectID, or the zero ObjectID if
// the hex is invalid.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// SessionToken returns the token of the user's current session.
func (u *SessionUser) SessionToken() string {
	return u.Token
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the signed-in user from the request context.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// LoadSessionUser is middleware that puts the signed-in user into the
// request context. With a UserFetcher configured the user record is
// loaded fresh; a vanished or disabled user clears the session instead.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logSessionError(r, err)
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			r = sm.resolveSessionUser(w, r, sess)
		}
		next.ServeHTTP(w, r)
	})
}

// resolveSessionUser turns an authenticated cookie into a SessionUser
// in the request context. A fetcher miss clears the session.
func (sm *SessionManager) resolveSessionUser(w http.ResponseWriter, r *http.Request, sess *sessions.Session) *http.Request {
	userID := getString(sess, userIDKey)
	if userID == "" {
		return r
	}
	token := getString(sess, sessionTokenKey)

	if sm.userFetcher == nil {
		// No fetcher configured; trust the cookie contents.
		return withUser(r, &SessionUser{
			ID:      userID,
			Name:    getString(sess, userName),
			LoginID: getString(sess, userLoginID),
			Role:    getString(sess, userRole),
			Token:   token,
		})
	}

	u := sm.userFetcher.FetchUser(r.Context(), userID)
	if u == nil {
		sm.logger.Info("session invalidated: user not found or disabled",
			zap.String("user_id", userID),
			zap.String("path", r.URL.Path))
		sess.Values[isAuthKey] = false
		delete(sess.Values, userIDKey)
		_ = sess.Save(r, w)
		return r
	}
	u.Token = token
	return withUser(r, u)
}

func (sm *SessionManager) logSessionError(r *http.Request, err error) {
	errType, errCategory := classifySessionError(err)
	switch errType {
	case sessionErrExpired:
		sm.logger.Debug("session expired, issuing a fresh one",
			zap.String("category", errCategory),
			zap.String("path", r.URL.Path))
	case sessionErrTampered:
		sm.logger.Warn("session MAC validation failed (possible tampering)",
			zap.String("category", errCategory),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()))
	case sessionErrCorrupted:
		sm.logger.Info("session cookie unreadable, issuing a fresh one",
			zap.String("category", errCategory),
			zap.String("path", r.URL.Path))
	case sessionErrBackend:
		sm.logger.Error("session store error, issuing a fresh one",
			zap.Error(err),
			zap.String("path", r.URL.Path))
	default:
		sm.logger.Warn("session error, issuing a fresh one",
			zap.Error(err),
			zap.String("category", errCategory),
			zap.String("path", r.URL.Path))
	}
}

// RequireSignedIn is middleware that rejects requests without a user in
// context, sending browsers to /login with a return parameter.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole is middleware that additionally checks the user's role
// against the allowed set. A missing user gets 401 semantics, a wrong
// role 403.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[normalize.Role(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				redirectToLogin(w, r)
				return
			}
			if _, has := set[normalize.Role(u.Role)]; !has {
				deny(w, r, "/forbidden", http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login?return=" + url.QueryEscape(r.URL.RequestURI())
	deny(w, r, target, http.StatusUnauthorized, "unauthorized")
}

// deny answers a rejected request by caller type: HTMX callers get an
// HX-Redirect with the bare status, browsers a 303 to target, API
// callers the status with a plain text body.
func deny(w http.ResponseWriter, r *http.Request, target string, status int, text string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(status)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	http.Error(w, text, status)
}

// CreateSession marks the session authenticated for the user. An empty
// token gets a freshly generated one.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role, token string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}

	if token == "" {
		token, err = GenerateSessionToken()
		if err != nil {
			return err
		}
	}

	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID.Hex()
	sess.Values[userRole] = role
	sess.Values[sessionTokenKey] = token

	return sess.Save(r, w)
}

// DestroySession signs the user out and expires the cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return
	}

	sess.Values[isAuthKey] = false
	for _, key := range []string{userIDKey, userName, userLoginID, userRole} {
		delete(sess.Values, key)
	}

	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

// GenerateSessionToken returns a random URL-safe token for tracking a
// browser session in the sessions collection.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// WithTestUser injects a SessionUser into the request context for tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// placeholderKeyMarkers flag session keys that were never meant for
// production.
var placeholderKeyMarkers = []string{
	"dev-only",
	"change-me",
	"placeholder",
	"default",
	"example",
	"insecure",
	"test-key",
	"secret123",
	"password",
}

func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range placeholderKeyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// decodeErrorClasses maps securecookie decode failures onto error
// classes by message substring. Order matters: decrypt and base64
// messages also contain "decode".
var decodeErrorClasses = []struct {
	substr   string
	errType  sessionErrorType
	category string
}{
	{"expired timestamp", sessionErrExpired, "expired"},
	{"mac", sessionErrTampered, "mac_invalid"},
	{"hash", sessionErrTampered, "mac_invalid"},
	{"decrypt", sessionErrCorrupted, "decrypt_failed"},
	{"base64", sessionErrCorrupted, "decode_failed"},
	{"decode", sessionErrCorrupted, "decode_failed"},
}

func classifySessionError(err error) (sessionErrorType, string) {
	if err == nil {
		return sessionErrUnknown, "none"
	}

	scErr, ok := err.(securecookie.Error)
	if !ok {
		return sessionErrBackend, "unknown"
	}
	if !scErr.IsDecode() {
		return sessionErrBackend, "backend"
	}

	msg := strings.ToLower(err.Error())
	for _, class := range decodeErrorClasses {
		if strings.Contains(msg, class.substr) {
			return class.errType, class.category
		}
	}
	return sessionErrCorrupted, "decode_other"
}
