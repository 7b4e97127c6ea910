package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Model = "gemini-2.5-flash-lite"
	cfg.APIKey = "test-key"
	return cfg
}

func candidateResponse(text string) generateResponse {
	var gr generateResponse
	gr.Candidates = []struct {
		Content content `json:"content"`
	}{
		{Content: content{Role: "model", Parts: []part{{Text: text}}}},
	}
	return gr
}

func TestGeminiClient_Generate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-lite:generateContent", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		assert.Equal(t, "analizza questi dati", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(candidateResponse("## Riepilogo\nTutto bene"))
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	text, err := client.Generate(context.Background(), "analizza questi dati")

	require.NoError(t, err)
	assert.Equal(t, "## Riepilogo\nTutto bene", text)
}

func TestGeminiClient_Generate_MultiPartCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var gr generateResponse
		gr.Candidates = []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: "parte uno "}, {Text: "parte due"}}}},
		}
		json.NewEncoder(w).Encode(gr)
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	text, err := client.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "parte uno parte due", text)
}

func TestGeminiClient_Generate_NoOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestGeminiClient_Generate_EmptyCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidateResponse(""))
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestGeminiClient_Generate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestGeminiClient_Generate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	client := NewGeminiClient(cfg)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestGeminiClient_Generate_Unavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1") // nothing listening
	cfg.Timeout = time.Second

	client := NewGeminiClient(cfg)
	_, err := client.Generate(context.Background(), "prompt")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGeminiClient_Generate_NoRetry(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewGeminiClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt")

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "a failed call must not be retried")
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.BaseURL)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)

	custom := Config{Model: "gemini-2.5-pro", Timeout: time.Minute}.withDefaults()
	assert.Equal(t, "gemini-2.5-pro", custom.Model)
	assert.Equal(t, time.Minute, custom.Timeout)
}
