package jsonutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
		wantBody   string
	}{
		{
			name:       "200 with data",
			status:     http.StatusOK,
			data:       map[string]string{"reportText": "ciao"},
			wantStatus: http.StatusOK,
			wantBody:   `{"reportText":"ciao"}`,
		},
		{
			name:       "error status with data",
			status:     http.StatusBadGateway,
			data:       map[string]string{"error": "upstream"},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"upstream"}`,
		},
		{
			name:       "nil data writes no body",
			status:     http.StatusOK,
			data:       nil,
			wantStatus: http.StatusOK,
			wantBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSON(rec, tt.status, tt.data)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json unmarshal error: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("body status = %q, want ok", got["status"])
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid JSON", `{"periodo":"2024-03"}`, false},
		{"invalid JSON", `{invalid}`, true},
		{"empty body", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var got map[string]any
			err := Decode(req, &got)
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_StructBinding(t *testing.T) {
	type input struct {
		Periodo    string            `json:"periodo"`
		ReportData map[string]string `json:"reportData"`
	}

	body := `{"periodo":"2024-03","reportData":{"peso":"82.5"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var in input
	if err := Decode(req, &in); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if in.Periodo != "2024-03" {
		t.Errorf("Periodo = %q, want 2024-03", in.Periodo)
	}
	if in.ReportData["peso"] != "82.5" {
		t.Errorf("reportData.peso = %q, want 82.5", in.ReportData["peso"])
	}
}

func TestDecode_BodyConsumed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"key":"value"}`))

	var first map[string]string
	if err := Decode(req, &first); err != nil {
		t.Fatalf("first Decode() error = %v", err)
	}

	var second map[string]string
	if err := Decode(req, &second); err != io.EOF {
		t.Errorf("second Decode() should fail with EOF, got %v", err)
	}
}
