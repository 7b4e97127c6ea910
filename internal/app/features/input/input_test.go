package input

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	profilestore "github.com/vitalmetrics/fitreport/internal/app/store/profile"
	reportstore "github.com/vitalmetrics/fitreport/internal/app/store/reports"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"github.com/vitalmetrics/fitreport/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeClient is a canned llm.Client for handler tests.
type fakeClient struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeClient) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestHandler(t *testing.T, client *fakeClient) (*Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	gen := reportgen.New(client, logger)
	errLog := errorsfeature.NewErrorLogger(logger)

	return NewHandler(db, gen, errLog, logger), db
}

func authedForm(t *testing.T, userID primitive.ObjectID, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/input", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return auth.WithTestUser(req, &auth.SessionUser{
		ID:      userID.Hex(),
		Name:    "Test User",
		LoginID: "test@example.com",
		Role:    "user",
	})
}

func TestSubmit_SavesMetricsAndGeneratesReport(t *testing.T) {
	client := &fakeClient{text: "## Riepilogo\nBuon mese.\n* Continua così"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	form := url.Values{
		"period": {"2024-03"},
		"peso":   {"82.5"},
		"imc":    {"24.1"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/reports/2024-03" {
		t.Errorf("Location = %q, want %q", loc, "/reports/2024-03")
	}

	saved, err := reportstore.New(db).Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	if saved.Metrics["peso"] != "82.5" {
		t.Errorf("peso = %q, want %q", saved.Metrics["peso"], "82.5")
	}
	if !saved.Finalized() {
		t.Fatal("report should be finalized after generation")
	}
	if !strings.Contains(saved.GeneratedHTML, `<h2 class="text-xl font-bold mt-4 mb-2">Riepilogo</h2>`) {
		t.Errorf("GeneratedHTML = %q, want formatted heading", saved.GeneratedHTML)
	}
	if !strings.Contains(saved.GeneratedHTML, `<li class="ml-4 list-disc">Continua così</li>`) {
		t.Errorf("GeneratedHTML = %q, want formatted list item", saved.GeneratedHTML)
	}
}

func TestSubmit_PromptIncludesProfileAndMetrics(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	if err := profilestore.New(db).Merge(ctx, userID, map[string]string{
		"eta":   "45",
		"sesso": "Maschio",
	}); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	form := url.Values{
		"period": {"2024-03"},
		"peso":   {"82.5"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	if len(client.prompts) != 1 {
		t.Fatalf("got %d model calls, want 1", len(client.prompts))
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "Età: 45") {
		t.Errorf("prompt should contain profile age, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Peso: 82.5 kg") {
		t.Errorf("prompt should contain submitted weight, got:\n%s", prompt)
	}
}

func TestSubmit_OverwriteDeclined_LeavesReportUntouched(t *testing.T) {
	testutil.MustBootTemplates(t)
	client := &fakeClient{text: "nuovo report"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	reports := reportstore.New(db)

	// Seed an existing finalized report
	if err := reports.MergeMetrics(ctx, userID, "2024-03", map[string]string{"peso": "80"}); err != nil {
		t.Fatalf("failed to seed metrics: %v", err)
	}
	if err := reports.SetGeneratedHTML(ctx, userID, "2024-03", "<p>vecchio report</p>"); err != nil {
		t.Fatalf("failed to seed narrative: %v", err)
	}

	// Submit for the same period without the overwrite flag
	form := url.Values{
		"period": {"2024-03"},
		"peso":   {"85"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	// No model call, no writes
	if len(client.prompts) != 0 {
		t.Errorf("got %d model calls, want 0", len(client.prompts))
	}

	saved, err := reports.Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	if saved.Metrics["peso"] != "80" {
		t.Errorf("peso = %q, want untouched %q", saved.Metrics["peso"], "80")
	}
	if saved.GeneratedHTML != "<p>vecchio report</p>" {
		t.Errorf("GeneratedHTML = %q, want untouched narrative", saved.GeneratedHTML)
	}
}

func TestSubmit_OverwriteConfirmed_Regenerates(t *testing.T) {
	client := &fakeClient{text: "## Nuovo\nAggiornato"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	reports := reportstore.New(db)

	if err := reports.MergeMetrics(ctx, userID, "2024-03", map[string]string{"peso": "80", "imc": "23.9"}); err != nil {
		t.Fatalf("failed to seed metrics: %v", err)
	}

	form := url.Values{
		"period":    {"2024-03"},
		"peso":      {"85"},
		"overwrite": {"1"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	saved, err := reports.Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	// Resubmitted key overwritten, omitted key preserved
	if saved.Metrics["peso"] != "85" {
		t.Errorf("peso = %q, want %q", saved.Metrics["peso"], "85")
	}
	if saved.Metrics["imc"] != "23.9" {
		t.Errorf("imc = %q, want preserved %q", saved.Metrics["imc"], "23.9")
	}
	if !saved.Finalized() {
		t.Error("report should be finalized")
	}
}

func TestSubmit_GenerationFails_MetricsStillSaved(t *testing.T) {
	testutil.MustBootTemplates(t)
	client := &fakeClient{err: errors.New("upstream exploded")}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	form := url.Values{
		"period": {"2024-03"},
		"peso":   {"82.5"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	// Form re-rendered with the generic error, not a redirect
	if rec.Code == http.StatusSeeOther {
		t.Error("should not redirect on generation failure")
	}
	if !strings.Contains(rec.Body.String(), "Si è verificato un errore durante la generazione del report") {
		t.Error("response should contain the generic generation error")
	}
	// The raw upstream cause must never reach the page
	if strings.Contains(rec.Body.String(), "upstream exploded") {
		t.Error("upstream error detail must not be shown to the user")
	}

	// Metrics persisted, narrative absent
	saved, err := reportstore.New(db).Get(ctx, userID, "2024-03")
	if err != nil {
		t.Fatalf("failed to get report: %v", err)
	}
	if saved.Metrics["peso"] != "82.5" {
		t.Errorf("peso = %q, want %q (saved despite failure)", saved.Metrics["peso"], "82.5")
	}
	if saved.Finalized() {
		t.Error("report should not be finalized after failed generation")
	}
}

func TestSubmit_InvalidPeriod(t *testing.T) {
	testutil.MustBootTemplates(t)
	client := &fakeClient{text: "ok"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	form := url.Values{
		"period": {"marzo 2024"},
		"peso":   {"82.5"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	if rec.Code == http.StatusSeeOther {
		t.Error("should not redirect with invalid period")
	}
	if len(client.prompts) != 0 {
		t.Errorf("got %d model calls, want 0", len(client.prompts))
	}

	// Nothing written
	if _, err := reportstore.New(db).Get(ctx, userID, "marzo 2024"); err == nil {
		t.Error("no report should exist for a malformed period")
	}
}

func TestSubmit_Unauthenticated(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h, _ := newTestHandler(t, client)

	req := httptest.NewRequest(http.MethodPost, "/input", nil)
	rec := httptest.NewRecorder()

	h.handleSubmit(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want %q", loc, "/login")
	}
}

func TestLoadHistory_ExcludesCurrentPeriod(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	reports := reportstore.New(db)
	for _, p := range []string{"2024-01", "2024-02", "2024-03"} {
		if err := reports.MergeMetrics(ctx, userID, p, map[string]string{"peso": "80"}); err != nil {
			t.Fatalf("failed to seed %s: %v", p, err)
		}
	}

	req := authedForm(t, userID, url.Values{})
	history, err := h.loadHistory(req, userID, "2024-03")
	if err != nil {
		t.Fatalf("loadHistory() error = %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("got %d history entries, want 2", len(history))
	}
	for _, e := range history {
		if e.Timestamp.Month() == 3 {
			t.Error("current period should be excluded from history")
		}
	}
}

func TestSubmit_MergesProfileFields(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h, db := newTestHandler(t, client)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	profiles := profilestore.New(db)
	if err := profiles.Merge(ctx, userID, map[string]string{
		"eta":       "44",
		"report_pt": "note del pt",
	}); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	// The form resubmits eta but omits report_pt entirely
	form := url.Values{
		"period": {"2024-03"},
		"peso":   {"82.5"},
		"eta":    {"45"},
	}

	rec := httptest.NewRecorder()
	h.handleSubmit(rec, authedForm(t, userID, form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}

	saved, err := profiles.Get(ctx, userID)
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	data := saved.PromptData()
	if data["eta"] != "45" {
		t.Errorf("eta = %q, want updated %q", data["eta"], "45")
	}
	if data["report_pt"] != "note del pt" {
		t.Errorf("report_pt = %q, want preserved %q", data["report_pt"], "note del pt")
	}
}

func TestCollectMetrics(t *testing.T) {
	form := url.Values{
		"peso":        {" 82.5 "},
		"imc":         {""},
		"fc_riposo":   {"55"},
		"not_a_field": {"ignored"},
	}

	req := httptest.NewRequest(http.MethodPost, "/input", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := req.ParseForm(); err != nil {
		t.Fatalf("failed to parse form: %v", err)
	}

	metrics := collectMetrics(req)

	if metrics["peso"] != "82.5" {
		t.Errorf("peso = %q, want trimmed %q", metrics["peso"], "82.5")
	}
	if _, ok := metrics["imc"]; ok {
		t.Error("empty values should be omitted")
	}
	if _, ok := metrics["not_a_field"]; ok {
		t.Error("unrecognized keys should be omitted")
	}
	if metrics["fc_riposo"] != "55" {
		t.Errorf("fc_riposo = %q, want %q", metrics["fc_riposo"], "55")
	}
}
