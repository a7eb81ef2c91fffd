package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/zerobalance/internal/api"
	"github.com/dvloznov/zerobalance/internal/api/handlers"
	"github.com/dvloznov/zerobalance/internal/app"
	"github.com/dvloznov/zerobalance/internal/config"
	"github.com/dvloznov/zerobalance/internal/jobs"
	"github.com/dvloznov/zerobalance/internal/jobs/inmemory"
	"github.com/dvloznov/zerobalance/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()
	cfg.Port = *port

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.Build(ctx, cfg, log, app.Options{AutoRecord: true})
	if err != nil {
		a.Close()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if err := a.Service.SeedCategories(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, jobStore, inmemory.WithWorkers(cfg.JobWorkers))

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		return errors.New("subscription review is not configured")
	}
	if a.Reviewer != nil {
		jobHandler = jobs.NewReviewHandler(a.Service, a.Reviewer, log)
	}

	// A nil *Categorizer must not become a non-nil interface.
	var suggester handlers.CategorySuggester
	if a.Categorizer != nil {
		suggester = a.Categorizer
	}

	handler := api.NewRouter(api.Handlers{
		Chat:          handlers.NewChatHandler(a.Service, log),
		Transactions:  handlers.NewTransactionsHandler(a.Service, log),
		Summary:       handlers.NewSummaryHandler(a.Service, log),
		Categories:    handlers.NewCategoriesHandler(a.Service, log),
		Users:         handlers.NewUsersHandler(a.Service, log),
		Budgets:       handlers.NewBudgetsHandler(a.Service, log),
		Categorize:    handlers.NewCategorizeHandler(a.Service, suggester, log),
		Subscriptions: handlers.NewSubscriptionsHandler(jobQueue, log),
		Jobs:          handlers.NewJobsHandler(jobStore, log),
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("workers", cfg.JobWorkers).Msg("Starting job workers")
		return jobQueue.Start(gctx, jobHandler)
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}

		// Stop job queue and wait for in-flight jobs
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		return
	}

	log.Info().Msg("Server exited")
}
