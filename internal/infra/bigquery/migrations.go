package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const schemaMigrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration files are named 0001_name.sql.
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single SQL migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// MigrationStatus reports the outcome for one migration.
type MigrationStatus struct {
	Migration
	// Applied is false when the version was already recorded.
	Applied bool
	// ChecksumMismatch is set when an applied migration's file changed.
	ChecksumMismatch bool
}

// Migrations returns the migrations bundled with the binary, with the
// {{PROJECT_ID}} and {{DATASET_ID}} placeholders filled in.
func Migrations(projectID, datasetID string) ([]Migration, error) {
	return readMigrations(migrationFiles, "migrations", projectID, datasetID)
}

func readMigrations(fsys fs.FS, dir, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if other, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, other, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		// The checksum covers the file as written, so the same migration
		// matches across projects and datasets.
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies the bundled migrations that are not recorded in
// schema_migrations yet, in version order. It stops at the first failure.
// The tables created by EnsureSchema must exist.
func (r *Repository) Migrate(ctx context.Context, appliedBy string) ([]MigrationStatus, error) {
	migrations, err := Migrations(r.projectID, r.datasetID)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	return r.applyMigrations(ctx, migrations, appliedBy)
}

func (r *Repository) applyMigrations(ctx context.Context, migrations []Migration, appliedBy string) ([]MigrationStatus, error) {
	if err := r.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}

	var report []MigrationStatus
	for _, m := range migrations {
		status := pendingStatus(m, applied)
		if !status.Applied {
			report = append(report, status)
			continue
		}

		if _, err := r.runDML(ctx, "Migrate "+m.Filename, m.SQL, nil); err != nil {
			return report, err
		}
		if err := r.recordMigration(ctx, m, appliedBy); err != nil {
			return report, fmt.Errorf("Migrate: recording %s: %w", m.Filename, err)
		}
		report = append(report, status)
	}
	return report, nil
}

// pendingStatus decides whether m still has to run given the applied set.
func pendingStatus(m Migration, applied map[int]AppliedMigration) MigrationStatus {
	prev, ok := applied[m.Version]
	if !ok {
		return MigrationStatus{Migration: m, Applied: true}
	}
	return MigrationStatus{
		Migration:        m,
		ChecksumMismatch: prev.Checksum != "" && prev.Checksum != m.Checksum,
	}
}

func (r *Repository) ensureSchemaMigrationsTable(ctx context.Context) error {
	sql := `
		CREATE TABLE IF NOT EXISTS ` + r.table(schemaMigrationsTable) + ` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`
	_, err := r.runDML(ctx, "ensureSchemaMigrationsTable", sql, nil)
	return err
}

// AppliedMigrations returns the recorded migrations keyed by version.
func (r *Repository) AppliedMigrations(ctx context.Context) (map[int]AppliedMigration, error) {
	q := r.client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + r.table(schemaMigrationsTable) + `
		ORDER BY version ASC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: query read: %w", err)
	}

	applied := make(map[int]AppliedMigration)
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("AppliedMigrations: iter next: %w", err)
		}

		applied[int(row.Version)] = AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		}
	}
	return applied, nil
}

func (r *Repository) recordMigration(ctx context.Context, m Migration, appliedBy string) error {
	sql := `
		INSERT INTO ` + r.table(schemaMigrationsTable) + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`
	params := []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	_, err := r.runDML(ctx, "recordMigration", sql, params)
	return err
}
