package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/domain"
)

type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"` // REQUIRED, slug
	Name       string              `bigquery:"name"`        // REQUIRED
	Color      bigquery.NullString `bigquery:"color"`       // NULLABLE
	Position   int64               `bigquery:"position"`    // REQUIRED, display order
	CreatedTS  time.Time           `bigquery:"created_ts"`  // REQUIRED
}

// Category converts the row into a domain category.
func (r CategoryRow) Category() domain.Category {
	return domain.Category{
		ID:    r.CategoryID,
		Name:  r.Name,
		Color: r.Color.StringVal,
	}
}

type UserRow struct {
	UserID    string    `bigquery:"user_id"`    // REQUIRED
	Name      string    `bigquery:"name"`       // REQUIRED
	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
