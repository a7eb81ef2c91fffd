package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// User-facing messages produced by the resolver itself.
const (
	EmptyInputMessage      = "Please type a message so I can assist you."
	NoResponseMessage      = "AI did not return a response."
	GenericErrorMessage    = "An unexpected error occurred."
	NoBackendMessage       = "AI assistant is not configured."
	addFormatErrorPrefix   = "AI response for adding transaction was not in the expected format. Details: "
	shapeFormatErrorPrefix = "AI response was not in the expected format. Details: "
)

// Request is one utterance plus the caller's live reference data.
type Request struct {
	Utterance   string
	Users       []domain.ReferenceEntity
	Categories  []domain.ReferenceEntity
	CurrentDate string // YYYY-MM-DD
}

// Resolver turns a single utterance into exactly one action. It keeps no
// state between calls and is safe for concurrent use.
type Resolver struct {
	extractor Extractor
	log       zerolog.Logger
	observers []Observer
	timeout   time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithObservers registers observers notified after every resolution.
func WithObservers(obs ...Observer) Option {
	return func(r *Resolver) { r.observers = append(r.observers, obs...) }
}

// WithTimeout bounds each backend call. Zero means no deadline beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver creates a resolver backed by extractor.
func NewResolver(extractor Extractor, opts ...Option) *Resolver {
	r := &Resolver{
		extractor: extractor,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never panics and never returns nil: every failure is reported
// as an Error action.
func (r *Resolver) Resolve(ctx context.Context, req Request) (action domain.Action) {
	trace := Trace{
		ID:          uuid.NewString(),
		Utterance:   req.Utterance,
		CurrentDate: req.CurrentDate,
		StartedAt:   time.Now(),
	}
	log := r.log.With().Str("resolution_id", trace.ID).Logger()

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("Resolution panicked")
			action = domain.Error{ErrorMessage: panicMessage(p)}
		}
		trace.Action = action
		trace.Duration = time.Since(trace.StartedAt)

		log.Debug().
			Str("action", string(action.Kind())).
			Dur("duration", trace.Duration).
			Msg("Resolution finished")

		r.notify(ctx, log, trace)
	}()

	return r.resolve(ctx, req, &trace, log)
}

func (r *Resolver) resolve(ctx context.Context, req Request, trace *Trace, log zerolog.Logger) domain.Action {
	if strings.TrimSpace(req.Utterance) == "" {
		log.Debug().Msg("Empty utterance, backend not called")
		return domain.Info{AIResponse: EmptyInputMessage}
	}
	if r.extractor == nil {
		return domain.Error{ErrorMessage: NoBackendMessage}
	}

	ref := NewReferenceData(req.Users, req.Categories)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	la, err := r.extractor.Extract(ctx, ExtractionRequest{
		Utterance:   req.Utterance,
		Users:       ref.Users,
		Categories:  ref.Categories,
		CurrentDate: req.CurrentDate,
	})
	if la != nil {
		trace.RawOutput = la.Raw
	}
	if err != nil {
		trace.BackendErr = err
		log.Warn().Err(err).Msg("Backend call failed")
		return domain.Error{ErrorMessage: errorMessage(err)}
	}
	if la == nil {
		log.Warn().Msg("Backend returned no response")
		return domain.Error{ErrorMessage: NoResponseMessage}
	}

	if domain.ActionKind(la.Action) == domain.KindAddTransaction {
		draft, err := la.Draft()
		if err != nil {
			log.Warn().Err(err).Msg("ADD_TRANSACTION params unreadable")
			return domain.Error{ErrorMessage: addFormatErrorPrefix + err.Error()}
		}
		candidate := Canonicalize(draft, ref)
		if draft.CategoryName != nil && candidate.CategoryID == ref.DefaultCategoryID() {
			if _, matched := ref.LookupCategory(*draft.CategoryName); !matched {
				log.Debug().
					Str("category_name", *draft.CategoryName).
					Str("category_id", candidate.CategoryID).
					Msg("Suggested category not found, using default")
			}
		}
		return resolveCandidate(candidate)
	}

	action, err := ValidateAction(la)
	if err != nil {
		log.Warn().Err(err).Str("action", la.Action).Msg("Backend output failed shape validation")
		return domain.Error{ErrorMessage: shapeFormatErrorPrefix + err.Error()}
	}
	return action
}

// notify hands the trace to every observer. Observer failures never change
// the resolved action.
func (r *Resolver) notify(ctx context.Context, log zerolog.Logger, t Trace) {
	for _, obs := range r.observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Error().Interface("panic", p).Msg("Resolution observer panicked")
				}
			}()
			if err := obs.ObserveResolution(ctx, t); err != nil {
				log.Warn().Err(err).Msg("Resolution observer failed")
			}
		}()
	}
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return GenericErrorMessage
}

func panicMessage(p interface{}) string {
	var msg string
	switch v := p.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	default:
		msg = fmt.Sprint(v)
	}
	if msg == "" {
		return GenericErrorMessage
	}
	return msg
}
