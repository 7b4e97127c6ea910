package generateapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errorsfeature "github.com/vitalmetrics/fitreport/internal/app/features/errors"
	"github.com/vitalmetrics/fitreport/internal/app/system/auth"
	"github.com/vitalmetrics/fitreport/internal/reportgen"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeClient struct {
	text    string
	err     error
	calls   int
	prompts []string
}

func (f *fakeClient) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestHandler(client *fakeClient) *Handler {
	logger := zap.NewNop()
	return NewHandler(reportgen.New(client, logger), errorsfeature.NewErrorLogger(logger), logger)
}

func postJSON(t *testing.T, authed bool, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req = auth.WithTestUser(req, &auth.SessionUser{
			ID:      primitive.NewObjectID().Hex(),
			Name:    "Test User",
			LoginID: "test@example.com",
			Role:    "user",
		})
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (kind, message string) {
	t.Helper()
	var out struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return out.Error.Kind, out.Error.Message
}

func TestGenerate_Success(t *testing.T) {
	client := &fakeClient{text: "## Riepilogo\nBuon mese."}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true,
		`{"reportData":{"peso":"82.5","eta":"45"},"historicalData":[],"periodo":"2024-03"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var out struct {
		ReportText string `json:"reportText"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.ReportText != "## Riepilogo\nBuon mese." {
		t.Errorf("reportText = %q, want the model text verbatim", out.ReportText)
	}

	if client.calls != 1 {
		t.Fatalf("got %d model calls, want 1", client.calls)
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "Peso: 82.5 kg") {
		t.Errorf("prompt should contain the submitted weight, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Età: 45") {
		t.Errorf("prompt should contain the submitted age, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Nessun dato storico disponibile.") {
		t.Errorf("prompt should note missing history, got:\n%s", prompt)
	}
}

func TestGenerate_HistoryInPrompt(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true,
		`{"reportData":{"peso":"82.5"},"historicalData":[{"timestamp":"2024-02-01T12:00:00Z","metrics":{"peso":"84"}}],"periodo":"2024-03"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "Peso: 84 kg") {
		t.Errorf("prompt should contain the historical weight, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "Nessun dato storico disponibile.") {
		t.Errorf("prompt should not claim missing history, got:\n%s", prompt)
	}
}

func TestGenerate_Unauthenticated(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, false, `{"reportData":{"peso":"80"},"periodo":"2024-03"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if kind, _ := decodeError(t, rec); kind != KindUnauthenticated {
		t.Errorf("kind = %q, want %q", kind, KindUnauthenticated)
	}
	if client.calls != 0 {
		t.Errorf("got %d model calls, want 0", client.calls)
	}
}

func TestGenerate_InvalidPeriod(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true, `{"reportData":{"peso":"80"},"periodo":"marzo"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if kind, _ := decodeError(t, rec); kind != KindInvalidInput {
		t.Errorf("kind = %q, want %q", kind, KindInvalidInput)
	}
	if client.calls != 0 {
		t.Errorf("got %d model calls, want 0", client.calls)
	}
}

func TestGenerate_MissingReportData(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true, `{"periodo":"2024-03"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if kind, _ := decodeError(t, rec); kind != KindInvalidInput {
		t.Errorf("kind = %q, want %q", kind, KindInvalidInput)
	}
}

func TestGenerate_MalformedJSON(t *testing.T) {
	client := &fakeClient{text: "ok"}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true, `{not json`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if kind, _ := decodeError(t, rec); kind != KindInvalidInput {
		t.Errorf("kind = %q, want %q", kind, KindInvalidInput)
	}
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	h := newTestHandler(client)

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, postJSON(t, true,
		`{"reportData":{"peso":"82.5"},"periodo":"2024-03"}`))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	kind, message := decodeError(t, rec)
	if kind != KindUpstream {
		t.Errorf("kind = %q, want %q", kind, KindUpstream)
	}
	if strings.Contains(message, "model unavailable") {
		t.Error("upstream error detail must not be exposed")
	}
}
