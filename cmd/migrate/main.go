package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/zerobalance/internal/config"
	infraBQ "github.com/dvloznov/zerobalance/internal/infra/bigquery"
	"github.com/dvloznov/zerobalance/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	projectID := flag.String("project", cfg.GCPProjectID, "GCP project ID (or set GCP_PROJECT_ID env)")
	datasetID := flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID (or set BIGQUERY_DATASET env)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	list := flag.Bool("list", false, "Print the bundled migrations and exit")
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if *list {
		migrations, err := infraBQ.Migrations(*projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migrations")
		}
		for _, m := range migrations {
			log.Info().Int("version", m.Version).Str("name", m.Name).Str("checksum", m.Checksum[:12]).Msg("Migration")
		}
		return
	}

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag is required. Please specify your GCP project ID.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	report, err := repo.Migrate(ctx, *appliedBy)
	applied := 0
	for _, s := range report {
		level, result := zerolog.InfoLevel, "skipped"
		switch {
		case s.ChecksumMismatch:
			level, result = zerolog.WarnLevel, "changed since applied"
		case s.Applied:
			result = "applied"
			applied++
		}
		log.WithLevel(level).Int("version", s.Version).Str("name", s.Name).Str("result", result).Msg("Migration")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Int("applied", applied).Msg("Migrations applied")
}
