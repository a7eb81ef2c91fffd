package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
)

type ResolutionRow struct {
	ResolutionID string `bigquery:"resolution_id"` // REQUIRED
	Utterance    string `bigquery:"utterance"`     // REQUIRED
	CurrentDate  string `bigquery:"request_date"`  // REQUIRED, YYYY-MM-DD as sent

	ModelName string `bigquery:"model_name"` // REQUIRED

	ActionKind string            `bigquery:"action_kind"` // REQUIRED
	ActionJSON bigquery.NullJSON `bigquery:"action_json"` // REQUIRED (JSON), wire form

	RawOutput    bigquery.NullString `bigquery:"raw_output"`    // NULLABLE, backend text
	BackendError bigquery.NullString `bigquery:"backend_error"` // NULLABLE

	StartedTS  time.Time `bigquery:"started_ts"`  // REQUIRED
	DurationMS int64     `bigquery:"duration_ms"` // REQUIRED
}

// newResolutionRow maps a resolution trace onto the table schema.
func newResolutionRow(t assistant.Trace, model string) (*ResolutionRow, error) {
	row := &ResolutionRow{
		ResolutionID: t.ID,
		Utterance:    t.Utterance,
		CurrentDate:  t.CurrentDate,
		ModelName:    model,
		RawOutput:    bigquery.NullString{StringVal: t.RawOutput, Valid: t.RawOutput != ""},
		StartedTS:    t.StartedAt,
		DurationMS:   t.Duration.Milliseconds(),
	}

	if t.Action != nil {
		wire, err := domain.MarshalAction(t.Action)
		if err != nil {
			return nil, fmt.Errorf("resolution %s: %w", t.ID, err)
		}
		row.ActionKind = string(t.Action.Kind())
		row.ActionJSON = bigquery.NullJSON{JSONVal: string(wire), Valid: true}
	}
	if t.BackendErr != nil {
		row.BackendError = bigquery.NullString{StringVal: t.BackendErr.Error(), Valid: true}
	}

	return row, nil
}

// ResolutionRecorder writes one row per chat resolution to the
// resolutions table. It implements assistant.Observer.
type ResolutionRecorder struct {
	repo  *Repository
	model string
}

// NewResolutionRecorder creates a recorder writing through repo's client.
func NewResolutionRecorder(repo *Repository, model string) *ResolutionRecorder {
	return &ResolutionRecorder{repo: repo, model: model}
}

// ObserveResolution implements assistant.Observer.
func (rr *ResolutionRecorder) ObserveResolution(ctx context.Context, t assistant.Trace) error {
	row, err := newResolutionRow(t, rr.model)
	if err != nil {
		return fmt.Errorf("ObserveResolution: %w", err)
	}

	inserter := rr.repo.client.Dataset(rr.repo.datasetID).Table(resolutionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("ObserveResolution: inserting row: %w", err)
	}
	return nil
}

// Ensure ResolutionRecorder implements assistant.Observer.
var _ assistant.Observer = (*ResolutionRecorder)(nil)
