// Package archive keeps a copy of every chat resolution in object storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
)

const (
	objectPrefix = "resolutions"
	contentType  = "application/json"
)

// Record is the archived form of one resolution.
type Record struct {
	ID           string          `json:"id"`
	Utterance    string          `json:"utterance"`
	CurrentDate  string          `json:"currentDate"`
	Model        string          `json:"model,omitempty"`
	Action       json.RawMessage `json:"action"`
	RawOutput    string          `json:"rawOutput,omitempty"`
	BackendError string          `json:"backendError,omitempty"`
	StartedAt    time.Time       `json:"startedAt"`
	DurationMS   int64           `json:"durationMs"`
}

// NewRecord builds the archived form of a trace.
func NewRecord(t assistant.Trace, model string) (Record, error) {
	rec := Record{
		ID:          t.ID,
		Utterance:   t.Utterance,
		CurrentDate: t.CurrentDate,
		Model:       model,
		RawOutput:   t.RawOutput,
		StartedAt:   t.StartedAt.UTC(),
		DurationMS:  t.Duration.Milliseconds(),
	}
	if t.Action != nil {
		wire, err := domain.MarshalAction(t.Action)
		if err != nil {
			return Record{}, fmt.Errorf("resolution %s: %w", t.ID, err)
		}
		rec.Action = wire
	}
	if t.BackendErr != nil {
		rec.BackendError = t.BackendErr.Error()
	}
	return rec, nil
}

// ObjectName returns resolutions/YYYY/MM/DD/<id>.json, dated by the UTC
// start time of the resolution.
func ObjectName(id string, startedAt time.Time) string {
	return fmt.Sprintf("%s/%s/%s.json", objectPrefix, startedAt.UTC().Format("2006/01/02"), id)
}

// GCSArchiver writes each resolution as a JSON object. It implements
// assistant.Observer.
type GCSArchiver struct {
	store  ObjectStore
	bucket string
	model  string
}

// NewGCSArchiver creates an archiver writing into bucket.
func NewGCSArchiver(store ObjectStore, bucket, model string) *GCSArchiver {
	return &GCSArchiver{store: store, bucket: bucket, model: model}
}

// ObserveResolution implements assistant.Observer.
func (a *GCSArchiver) ObserveResolution(ctx context.Context, t assistant.Trace) error {
	rec, err := NewRecord(t, a.model)
	if err != nil {
		return fmt.Errorf("ObserveResolution: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("ObserveResolution: encoding record: %w", err)
	}

	object := ObjectName(t.ID, t.StartedAt)
	if err := a.store.Put(ctx, a.bucket, object, data, contentType); err != nil {
		return fmt.Errorf("ObserveResolution: %w", err)
	}
	return nil
}

// Fetch reads an archived record back from a gs:// URI.
func Fetch(ctx context.Context, store ObjectStore, uri string) (Record, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return Record{}, err
	}

	data, err := store.Get(ctx, bucket, object)
	if err != nil {
		return Record{}, fmt.Errorf("Fetch: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("Fetch: decoding %s: %w", uri, err)
	}
	return rec, nil
}

// Ensure GCSArchiver implements assistant.Observer.
var _ assistant.Observer = (*GCSArchiver)(nil)
