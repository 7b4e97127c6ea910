// Package reportgen turns a month of submitted metrics plus history
// into generated narrative text by prompting the language model.
package reportgen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vitalmetrics/fitreport/internal/llm"
	"github.com/vitalmetrics/fitreport/internal/report"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput is returned when the period or the metric data is
	// missing. No model call is made in that case.
	ErrInvalidInput = errors.New("dati mancanti per la generazione del report")

	// ErrUpstream is returned when the model call failed or produced no
	// usable text. The underlying cause is logged, never surfaced.
	ErrUpstream = errors.New("si è verificato un errore durante la generazione del report da parte dell'IA")
)

// Input carries one generation request. Data holds profile attributes
// and the current period's metrics; History holds prior reports in any
// order.
type Input struct {
	Period  string
	Data    map[string]string
	History []report.HistoryEntry
}

// Service invokes the language model for report generation. One call
// per request, no retry: a failed generation is a failed request and
// resubmission is the user's decision.
type Service struct {
	client llm.Client
	logger *zap.Logger
}

// New creates a report generation service.
func New(client llm.Client, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Generate validates the input, builds the prompt, and makes a single
// model call. Returns the model's top candidate text verbatim.
func (s *Service) Generate(ctx context.Context, in Input) (string, error) {
	if in.Period == "" || in.Data == nil {
		return "", ErrInvalidInput
	}

	prompt := report.BuildPrompt(in.Period, in.Data, in.History)

	reqID := uuid.NewString()
	s.logger.Info("generating report",
		zap.String("request_id", reqID),
		zap.String("period", in.Period),
		zap.Int("history_entries", len(in.History)))

	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("report generation failed",
			zap.String("request_id", reqID),
			zap.String("period", in.Period),
			zap.Error(err))
		return "", ErrUpstream
	}

	s.logger.Info("report generated",
		zap.String("request_id", reqID),
		zap.String("period", in.Period),
		zap.Int("chars", len(text)))
	return text, nil
}
