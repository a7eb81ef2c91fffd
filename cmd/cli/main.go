package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/app"
	"github.com/dvloznov/zerobalance/internal/archive"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/config"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/logger"
	"github.com/rs/zerolog"
)

// commandTimeout bounds every CLI command so it cannot hang.
const commandTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(cfg, log)
	case "categorize":
		runCategorize(cfg, log)
	case "review":
		runReview(cfg, log)
	case "add-user":
		runAddUser(cfg, log)
	case "init-schema":
		runInitSchema(cfg, log)
	case "show-resolution":
		runShowResolution(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ZeroBalance CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  chat             Resolve one chat message and print the action")
	fmt.Println("  categorize       Suggest a category for a transaction description")
	fmt.Println("  review           Look for recurring subscriptions in recent expenses")
	fmt.Println("  add-user         Add a roommate")
	fmt.Println("  init-schema      Create the BigQuery dataset and tables and seed categories")
	fmt.Println("  show-resolution  Print an archived resolution from its gs:// URI")
	fmt.Println("  help             Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// setup validates the configuration and builds the application.
func setup(cfg *config.Config, log zerolog.Logger, opts app.Options) (context.Context, func(), *app.App) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	ctx = logger.WithContext(ctx, log)

	a, err := app.Build(ctx, cfg, log, opts)
	if err != nil {
		a.Close()
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	return ctx, func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close clients")
		}
		cancel()
	}, a
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
	}
}

func runChat(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	message := fs.String("message", "", "Chat message to resolve (or pass it as arguments)")
	date := fs.String("date", "", "Current date in YYYY-MM-DD format (defaults to today)")
	record := fs.Bool("record", false, "Record the transaction when the message resolves to one")
	fs.Parse(os.Args[2:])

	if *message == "" {
		*message = strings.Join(fs.Args(), " ")
	}

	var today civil.Date
	if *date != "" {
		d, err := civil.ParseDate(*date)
		if err != nil {
			log.Fatal().Err(err).Str("date", *date).Msg("Error: invalid date format, expected YYYY-MM-DD")
		}
		today = d
	}

	ctx, done, a := setup(cfg, log, app.Options{AutoRecord: *record})
	defer done()

	result, err := a.Service.Chat(ctx, *message, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Chat failed")
	}

	wire, err := domain.MarshalAction(result.Action)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode action")
	}

	printJSON(struct {
		Action      json.RawMessage     `json:"action"`
		Transaction *domain.Transaction `json:"transaction,omitempty"`
	}{wire, result.Transaction})
}

func runCategorize(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	description := fs.String("description", "", "Transaction description")
	fs.Parse(os.Args[2:])

	if *description == "" {
		log.Fatal().Msg("Error: --description is required")
	}

	ctx, done, a := setup(cfg, log, app.Options{})
	defer done()

	if a.Categorizer == nil {
		log.Fatal().Msg(assistant.NoBackendMessage)
	}

	_, categories, err := a.Service.ReferenceData(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load categories")
	}

	suggestion, err := a.Categorizer.Suggest(ctx, *description, categories)
	if err != nil {
		log.Fatal().Err(err).Msg("Categorization failed")
	}

	id, matched := assistant.MatchSuggestion(suggestion, categories)
	fmt.Printf("Category:    %s\n", suggestion.Category)
	fmt.Printf("Confidence:  %.2f\n", suggestion.Confidence)
	fmt.Printf("Category ID: %s (matched: %t)\n", id, matched)
}

func runReview(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	months := fs.Int("months", 3, "Number of months of expenses to analyze")
	fs.Parse(os.Args[2:])

	if *months <= 0 {
		log.Fatal().Int("months", *months).Msg("Error: --months must be positive")
	}

	ctx, done, a := setup(cfg, log, app.Options{})
	defer done()

	if a.Reviewer == nil {
		log.Fatal().Msg(assistant.NoBackendMessage)
	}

	req, err := a.Service.ReviewRequest(ctx, *months)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load expenses")
	}

	log.Info().Int("transactions", len(req.Transactions)).Int("months", *months).Msg("Starting subscription review")

	review, err := a.Reviewer.Review(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Subscription review failed")
	}

	printJSON(review)
}

func runAddUser(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("add-user", flag.ExitOnError)
	name := fs.String("name", "", "Roommate name")
	fs.Parse(os.Args[2:])

	if *name == "" {
		log.Fatal().Msg("Error: --name is required")
	}

	ctx, done, a := setup(cfg, log, app.Options{})
	defer done()

	user, err := a.Service.AddUser(ctx, *name)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to add user")
	}

	fmt.Printf("Added %s (%s)\n", user.Name, user.ID)
}

func runInitSchema(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("init-schema", flag.ExitOnError)
	location := fs.String("location", "EU", "BigQuery dataset location")
	fs.Parse(os.Args[2:])

	if cfg.StorageBackend != config.BackendBigQuery {
		log.Fatal().Str("backend", cfg.StorageBackend).Msg("Error: init-schema requires STORAGE_BACKEND=bigquery")
	}

	ctx, done, a := setup(cfg, log, app.Options{})
	defer done()

	created, err := a.BigQuery.EnsureSchema(ctx, *location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema")
	}
	for _, table := range created {
		log.Info().Str("table", table).Msg("Created table")
	}

	if err := a.Service.SeedCategories(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}

	fmt.Printf("Schema ready: %d table(s) created, categories seeded.\n", len(created))
}

func runShowResolution(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("show-resolution", flag.ExitOnError)
	uri := fs.String("uri", "", "gs:// URI of the archived resolution")
	fs.Parse(os.Args[2:])

	if *uri == "" {
		log.Fatal().Msg("Error: --uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	store, err := archive.NewGCSStore(ctx, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer store.Close()

	rec, err := archive.Fetch(ctx, store, *uri)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch resolution")
	}

	printJSON(rec)
}
