package login

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	"github.com/vitalmetrics/fitreport/internal/app/store/sessions"
	userstore "github.com/vitalmetrics/fitreport/internal/app/store/users"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/app/system/authutil"
	"github.com/vitalmetrics/fitreport/internal/domain/models"
	"github.com/vitalmetrics/fitreport/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *userstore.Store, *sessions.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager(
		"test-session-key-for-testing-1234567890",
		"test-session",
		"",
		24*time.Hour,
		false,
		logger,
	)
	if err != nil {
		t.Fatalf("create session manager: %v", err)
	}

	sessionsStore := sessions.New(db)
	h := NewHandler(db, sessionMgr, errorsfeature.NewErrorLogger(logger), sessionsStore, true, logger)
	return h, userstore.New(db), sessionsStore
}

func createUser(t *testing.T, store *userstore.Store, loginID, authMethod string, passwordHash *string, status string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:     "Mario Rossi",
		LoginID:      &loginID,
		AuthMethod:   authMethod,
		Role:         "user",
		Status:       status,
		PasswordHash: passwordHash,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return created
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.WithCSRFToken(req)
}

func TestShowLogin_MapsErrorCodes(t *testing.T) {
	h, _, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	tests := []struct {
		code string
		want string
	}{
		{"account_disabled", "disattivato"},
		{"user_not_found", "Utente non trovato"},
		{"invalid_state", "Link non valido o scaduto"},
		{"oauth_error", "Accesso con Google non riuscito"},
		{"database_error", "Servizio temporaneamente non disponibile"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/login?error="+tt.code, nil))
			rec := httptest.NewRecorder()

			h.showLogin(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body should contain %q", tt.want)
			}
		})
	}
}

func TestHandleLogin_MissingLoginID(t *testing.T) {
	h, _, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postForm("/login", url.Values{}))

	if !strings.Contains(rec.Body.String(), "Inserisci il tuo ID di accesso") {
		t.Error("body should ask for the login id")
	}
}

func TestHandleLogin_UnknownUser(t *testing.T) {
	h, _, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postForm("/login", url.Values{"login_id": {"sconosciuto@example.com"}}))

	if !strings.Contains(rec.Body.String(), "Utente non trovato") {
		t.Error("body should report the unknown user")
	}
}

func TestHandleLogin_DisabledUser(t *testing.T) {
	h, users, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	createUser(t, users, "mario@example.com", "password", nil, "disabled")

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postForm("/login", url.Values{"login_id": {"mario@example.com"}}))

	if !strings.Contains(rec.Body.String(), "disattivato") {
		t.Error("body should report the disabled account")
	}
}

func TestHandleLogin_RoutesByAuthMethod(t *testing.T) {
	h, users, _ := newTestHandler(t)

	tests := []struct {
		loginID    string
		authMethod string
		wantPrefix string
	}{
		{"password.user@example.com", "password", "/login/password?login_id="},
		{"google.user@example.com", "google", "/auth/google"},
	}

	for _, tt := range tests {
		t.Run(tt.authMethod, func(t *testing.T) {
			createUser(t, users, tt.loginID, tt.authMethod, nil, "active")

			rec := httptest.NewRecorder()
			h.handleLogin(rec, postForm("/login", url.Values{"login_id": {tt.loginID}}))

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if location := rec.Header().Get("Location"); !strings.HasPrefix(location, tt.wantPrefix) {
				t.Errorf("Location = %q, want prefix %q", location, tt.wantPrefix)
			}
		})
	}
}

func TestHandleLogin_TrustUserSignsIn(t *testing.T) {
	h, users, sessionsStore := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created := createUser(t, users, "fidato@example.com", "trust", nil, "active")

	rec := httptest.NewRecorder()
	h.handleLogin(rec, postForm("/login", url.Values{"login_id": {"fidato@example.com"}}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if location := rec.Header().Get("Location"); location != "/input" {
		t.Errorf("Location = %q, want /input", location)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("login should set a session cookie")
	}

	tracked, err := sessionsStore.ListByUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tracked) != 1 {
		t.Errorf("tracked sessions = %d, want 1", len(tracked))
	}
}

func TestHandlePasswordLogin_Success(t *testing.T) {
	h, users, _ := newTestHandler(t)

	hash, err := authutil.HashPassword("parola-segreta-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	createUser(t, users, "mario@example.com", "password", &hash, "active")

	rec := httptest.NewRecorder()
	h.handlePasswordLogin(rec, postForm("/login/password", url.Values{
		"login_id": {"mario@example.com"},
		"password": {"parola-segreta-123"},
	}))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if location := rec.Header().Get("Location"); location != "/input" {
		t.Errorf("Location = %q, want /input", location)
	}
}

func TestHandlePasswordLogin_WrongPassword(t *testing.T) {
	h, users, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	hash, err := authutil.HashPassword("parola-segreta-123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	createUser(t, users, "mario@example.com", "password", &hash, "active")

	rec := httptest.NewRecorder()
	h.handlePasswordLogin(rec, postForm("/login/password", url.Values{
		"login_id": {"mario@example.com"},
		"password": {"sbagliata"},
	}))

	if !strings.Contains(rec.Body.String(), "Credenziali non valide") {
		t.Error("body should report the bad credentials")
	}
}

func TestHandlePasswordLogin_UnknownUserSameError(t *testing.T) {
	h, _, _ := newTestHandler(t)
	testutil.MustBootTemplates(t)

	// The unknown-user case shows the same message as a wrong password,
	// so the form does not leak which login ids exist.
	rec := httptest.NewRecorder()
	h.handlePasswordLogin(rec, postForm("/login/password", url.Values{
		"login_id": {"sconosciuto@example.com"},
		"password": {"qualsiasi"},
	}))

	if !strings.Contains(rec.Body.String(), "Credenziali non valide") {
		t.Error("body should report bad credentials for an unknown user")
	}
}

func TestRoutes_TrustLogin(t *testing.T) {
	testutil.MustBootTemplates(t)

	t.Run("enabled", func(t *testing.T) {
		h, _, _ := newTestHandler(t)
		rec := httptest.NewRecorder()
		Routes(h).ServeHTTP(rec, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/trust", nil)))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := NewHandler(db, nil, nil, sessions.New(db), false, zap.NewNop())
		rec := httptest.NewRecorder()
		Routes(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trust", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
