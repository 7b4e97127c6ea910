// Package llm provides the HTTP client for the hosted generative
// language model used to write the monthly report narrative.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Client generates text from a prompt. Implementations make exactly
// one model call per Generate invocation; retrying is the caller's
// decision and nothing here retries automatically.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient implements Client against a Gemini-style
// generateContent REST endpoint.
type GeminiClient struct {
	cfg  Config
	http *http.Client
}

// NewGeminiClient creates a client for the configured endpoint.
func NewGeminiClient(cfg Config) *GeminiClient {
	cfg = cfg.withDefaults()
	return &GeminiClient{
		cfg: cfg,
		// Timeout is enforced per-request via context so that callers
		// with shorter deadlines win.
		http: &http.Client{},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt as a single-shot, non-streaming request
// and returns the top candidate's text verbatim.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrTimeout
		}
		if isConnectionError(err) {
			return "", ErrUnavailable
		}
		return "", fmt.Errorf("calling generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	text := topCandidateText(gr)
	if text == "" {
		return "", ErrNoOutput
	}
	return text, nil
}

// topCandidateText concatenates the parts of the first candidate.
func topCandidateText(gr generateResponse) string {
	if len(gr.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
