package assistant

import (
	"context"
	"time"

	"github.com/dvloznov/zerobalance/internal/domain"
)

// ExtractionRequest is what the generative backend receives for one
// utterance.
type ExtractionRequest struct {
	Utterance   string                   `json:"utterance"`
	Users       []domain.ReferenceEntity `json:"users"`
	Categories  []domain.ReferenceEntity `json:"categories"`
	CurrentDate string                   `json:"currentDate"` // YYYY-MM-DD
}

// Extractor turns an utterance into a loose action. Returning (nil, nil)
// means the backend answered with no value.
// This interface enables mocking and testing of the model call.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*LooseAction, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req ExtractionRequest) (*LooseAction, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, req ExtractionRequest) (*LooseAction, error) {
	return f(ctx, req)
}

// Trace describes one finished resolution for observers.
type Trace struct {
	ID          string
	Utterance   string
	CurrentDate string
	RawOutput   string // backend text, empty if the backend was not reached
	Action      domain.Action
	BackendErr  error
	StartedAt   time.Time
	Duration    time.Duration
}

// Observer receives a Trace after every resolution. Observers must not
// block for long; their errors are logged and otherwise ignored.
type Observer interface {
	ObserveResolution(ctx context.Context, t Trace) error
}
