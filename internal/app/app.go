// Package app assembles the ledger service and its collaborators from
// configuration. Every command builds on it.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/zerobalance/internal/archive"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/config"
	infraBQ "github.com/dvloznov/zerobalance/internal/infra/bigquery"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/dvloznov/zerobalance/internal/store/memory"
	"github.com/rs/zerolog"
)

// App holds the wired components. Optional components are nil when their
// configuration is absent.
type App struct {
	Service *ledger.Service

	// BigQuery is set for the bigquery storage backend.
	BigQuery *infraBQ.Repository

	// Set only when GEMINI_API_KEY is configured.
	Resolver    *assistant.Resolver
	Categorizer *assistant.Categorizer
	Reviewer    *assistant.SubscriptionReviewer

	// Archive is set when ARCHIVE_BUCKET is configured.
	Archive *archive.GCSStore

	cleanup []func() error
	log     zerolog.Logger
}

// Options tune Build for a particular command.
type Options struct {
	// AutoRecord makes chat record AddTransaction actions.
	AutoRecord bool
}

// Build wires storage, the model client and the observers. Call Close when
// done, also after a failed Build.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{log: log}

	repo, err := a.buildRepository(ctx, cfg)
	if err != nil {
		return a, err
	}

	var resolver ledger.Resolver
	if cfg.GeminiAPIKey != "" {
		gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return a, fmt.Errorf("Build: %w", err)
		}

		observers, err := a.buildObservers(ctx, cfg, gemini.Model())
		if err != nil {
			return a, err
		}

		a.Resolver = assistant.NewResolver(
			assistant.NewModelExtractor(gemini),
			assistant.WithLogger(log),
			assistant.WithTimeout(cfg.ResolveTimeout),
			assistant.WithObservers(observers...),
		)
		a.Categorizer = assistant.NewCategorizer(gemini)
		a.Reviewer = assistant.NewSubscriptionReviewer(gemini)
		resolver = a.Resolver

		log.Info().Str("model", gemini.Model()).Int("observers", len(observers)).Msg("Chat assistant enabled")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - chat, categorize and review are disabled")
	}

	a.Service = ledger.NewService(repo, resolver,
		ledger.WithAutoRecord(opts.AutoRecord),
		ledger.WithServiceLogger(log),
	)
	return a, nil
}

func (a *App) buildRepository(ctx context.Context, cfg *config.Config) (ledger.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		a.BigQuery = repo
		a.cleanup = append(a.cleanup, repo.Close)

		a.log.Info().
			Str("project", cfg.GCPProjectID).
			Str("dataset", cfg.BigQueryDataset).
			Msg("Initialized BigQuery backend")
		return repo, nil
	case config.BackendMemory:
		a.log.Info().Msg("Initialized in-memory backend")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("Build: unsupported storage backend: %s", cfg.StorageBackend)
	}
}

// buildObservers returns the resolution audit sinks that are configured.
func (a *App) buildObservers(ctx context.Context, cfg *config.Config, model string) ([]assistant.Observer, error) {
	var observers []assistant.Observer

	if a.BigQuery != nil {
		observers = append(observers, infraBQ.NewResolutionRecorder(a.BigQuery, model))
	}

	if cfg.ArchiveBucket != "" {
		store, err := archive.NewGCSStore(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("Build: %w", err)
		}
		a.Archive = store
		a.cleanup = append(a.cleanup, store.Close)
		observers = append(observers, archive.NewGCSArchiver(store, cfg.ArchiveBucket, model))
	}

	return observers, nil
}

// Close releases every client opened by Build, last opened first.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.cleanup = nil
	return firstErr
}
