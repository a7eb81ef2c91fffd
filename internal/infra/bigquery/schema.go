package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

// tableSpec describes one table created by EnsureSchema.
type tableSpec struct {
	name         string
	row          interface{}
	partitionCol string
	required     []string
}

func tableSpecs() []tableSpec {
	return []tableSpec{
		{name: usersTable, row: UserRow{}, required: []string{"user_id", "name", "created_ts"}},
		{name: categoriesTable, row: CategoryRow{}, required: []string{"category_id", "name", "position", "created_ts"}},
		{
			name:         transactionsTable,
			row:          TransactionRow{},
			partitionCol: "transaction_date",
			required:     []string{"transaction_id", "user_id", "transaction_date", "description", "amount", "type", "category_id", "created_ts"},
		},
		{
			name:     budgetsTable,
			row:      BudgetRow{},
			required: []string{"budget_id", "user_id", "category_id", "name", "amount", "period", "start_date", "created_ts"},
		},
		{
			name:         resolutionsTable,
			row:          ResolutionRow{},
			partitionCol: "started_ts",
			required:     []string{"resolution_id", "utterance", "request_date", "model_name", "action_kind", "started_ts", "duration_ms"},
		},
	}
}

// EnsureSchema creates the dataset and every table if they do not exist.
// Existing tables are left untouched. The returned slice names the tables
// that were created.
func (r *Repository) EnsureSchema(ctx context.Context, location string) ([]string, error) {
	ds := r.client.Dataset(r.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("EnsureSchema: dataset metadata: %w", err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: location}); err != nil && !isStatus(err, http.StatusConflict) {
			return nil, fmt.Errorf("EnsureSchema: creating dataset %s: %w", r.datasetID, err)
		}
	}

	var created []string
	for _, spec := range tableSpecs() {
		meta, err := tableMetadata(spec)
		if err != nil {
			return created, fmt.Errorf("EnsureSchema: %w", err)
		}
		err = ds.Table(spec.name).Create(ctx, meta)
		if err != nil {
			if isStatus(err, http.StatusConflict) {
				continue
			}
			return created, fmt.Errorf("EnsureSchema: creating table %s: %w", spec.name, err)
		}
		created = append(created, spec.name)
	}
	return created, nil
}

// tableMetadata infers the schema from the row struct and applies the
// REQUIRED columns and partitioning.
func tableMetadata(spec tableSpec) (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(spec.row)
	if err != nil {
		return nil, fmt.Errorf("inferring schema for %s: %w", spec.name, err)
	}

	required := make(map[string]bool, len(spec.required))
	for _, name := range spec.required {
		required[name] = true
	}
	for _, field := range schema {
		if required[field.Name] {
			field.Required = true
		}
	}

	meta := &bigquery.TableMetadata{Schema: schema}
	if spec.partitionCol != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: spec.partitionCol,
		}
	}
	return meta, nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
