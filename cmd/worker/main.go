package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/zerobalance/internal/app"
	"github.com/dvloznov/zerobalance/internal/config"
	"github.com/dvloznov/zerobalance/internal/jobs"
	"github.com/dvloznov/zerobalance/internal/jobs/inmemory"
	"github.com/dvloznov/zerobalance/internal/logger"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	months := flag.Int("months", 3, "Number of months of expenses to review")
	interval := flag.Duration("interval", 24*time.Hour, "Time between subscription reviews")
	once := flag.Bool("once", false, "Run a single review and exit")
	flag.Parse()

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *months < 1 {
		log.Fatal().Int("months", *months).Msg("Error: --months must be at least 1")
	}

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		a.Close()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if a.Reviewer == nil {
		log.Fatal().Msg("Subscription review needs GEMINI_API_KEY")
	}

	reviewHandler := jobs.NewReviewHandler(a.Service, a.Reviewer, log)
	handler := func(ctx context.Context, job jobs.Job) error {
		if err := reviewHandler(ctx, job); err != nil {
			return err
		}
		review, ok := job.(*jobs.ReviewSubscriptionsJob)
		if !ok || review.Result == nil {
			return nil
		}
		for _, sub := range review.Result.PotentialSubscriptions {
			log.Info().
				Str("job_id", review.JobID).
				Str("name", sub.Name).
				Float64("average_amount", sub.AverageAmount).
				Str("frequency", sub.EstimatedFrequency).
				Float64("confidence", sub.Confidence).
				Msg("Potential subscription")
		}
		return nil
	}

	if *once {
		job := &jobs.ReviewSubscriptionsJob{JobID: uuid.NewString(), Months: *months, CreatedAt: time.Now()}
		if err := handler(ctx, job); err != nil {
			log.Fatal().Err(err).Str("job_id", job.JobID).Msg("Review failed")
		}
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, jobStore, inmemory.WithWorkers(1))

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	publish := func() {
		job := &jobs.ReviewSubscriptionsJob{JobID: uuid.NewString(), Months: *months}
		if err := jobQueue.PublishReviewSubscriptions(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to publish review job")
			return
		}
		log.Info().Str("job_id", job.JobID).Int("months", *months).Msg("Review job published")
	}

	log.Info().Dur("interval", *interval).Msg("Worker service started")
	publish()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ticker.C:
			publish()
		case <-ctx.Done():
			running = false
		}
	}

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
