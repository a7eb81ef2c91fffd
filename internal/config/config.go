package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	StorageBackend  string
	GCPProjectID    string
	BigQueryDataset string
	CredentialsFile string

	// Gemini
	GeminiAPIKey   string
	GeminiModel    string
	ResolveTimeout time.Duration

	// Resolution archive
	ArchiveBucket string

	// Notion mirror
	NotionToken      string
	NotionDatabaseID string

	// Jobs
	JobWorkers   int
	JobQueueSize int
}

// Load reads configuration from the environment. A .env file in the
// working directory, when present, is loaded first; real environment
// variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StorageBackend:  getEnv("STORAGE_BACKEND", BackendMemory),
		GCPProjectID:    getEnv("GCP_PROJECT_ID", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "zerobalance"),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS_FILE", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ResolveTimeout: getEnvDuration("RESOLVE_TIMEOUT", 0),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		JobWorkers:   getEnvInt("JOB_WORKERS", 2),
		JobQueueSize: getEnvInt("JOB_QUEUE_SIZE", 100),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be console or json", c.LogFormat))
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendBigQuery:
		if c.GCPProjectID == "" {
			errors = append(errors, "GCP_PROJECT_ID is required when using bigquery backend")
		}
		if c.BigQueryDataset == "" {
			errors = append(errors, "BIGQUERY_DATASET cannot be empty when using bigquery backend")
		}
		if c.CredentialsFile != "" {
			if _, err := os.Stat(c.CredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("credentials file does not exist: %s", c.CredentialsFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid storage backend '%s': must be one of [%s %s]", c.StorageBackend, BackendMemory, BackendBigQuery))
	}

	if c.ResolveTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid resolve timeout %v: must not be negative", c.ResolveTimeout))
	}

	if (c.NotionToken == "") != (c.NotionDatabaseID == "") {
		errors = append(errors, "NOTION_TOKEN and NOTION_DATABASE_ID must be set together")
	}

	if c.JobWorkers < 1 || c.JobWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid job workers %d: must be between 1 and 64", c.JobWorkers))
	}
	if c.JobQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid job queue size %d: must be at least 1", c.JobQueueSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDatabaseID != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
