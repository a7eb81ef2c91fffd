package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/app"
	"github.com/dvloznov/zerobalance/internal/config"
	"github.com/dvloznov/zerobalance/internal/logger"
	"github.com/dvloznov/zerobalance/internal/notionsync"
)

func main() {
	cfg := config.Load()

	// Initialize structured logger
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	cfg.NotionToken = *notionToken
	cfg.NotionDatabaseID = *notionDBID
	if !cfg.NotionEnabled() {
		log.Fatal().Msg("Error: --notion-token and --notion-db-id are required")
	}

	// Parse dates
	startDate, err := civil.ParseDate(*startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}

	endDate, err := civil.ParseDate(*endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}

	// Validate date range
	if endDate.Before(startDate) {
		log.Fatal().
			Str("start_date", *startDateStr).
			Str("end_date", *endDateStr).
			Msg("Error: end-date must not be before start-date")
	}

	if cfg.StorageBackend != config.BackendBigQuery {
		log.Warn().Str("backend", cfg.StorageBackend).Msg("Syncing from a non-persistent backend; Notion pages outside it will be archived")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	a, err := app.Build(ctx, cfg, log, app.Options{})
	if err != nil {
		a.Close()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(cfg.NotionToken)

	result, err := notionsync.SyncTransactions(ctx, a.Service, notionClient, cfg.NotionDatabaseID, startDate, endDate, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d archived, %d unchanged, %d failed.\n",
		result.Created, result.Archived, result.Skipped, result.Failed)
}
