package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"google.golang.org/api/iterator"
)

// ListCategories returns all categories in display order.
func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	q := r.client.Query(`
		SELECT
		  category_id,
		  name,
		  color,
		  position,
		  created_ts
		FROM ` + r.table(categoriesTable) + `
		ORDER BY position, category_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	cats := []domain.Category{}
	for {
		var row CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		cats = append(cats, row.Category())
	}

	return cats, nil
}

// EnsureCategories inserts the categories whose ids are not stored yet,
// appended after the existing ones.
func (r *Repository) EnsureCategories(ctx context.Context, cats []domain.Category) error {
	existing, err := r.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("EnsureCategories: %w", err)
	}

	rows := missingCategoryRows(existing, cats, time.Now())
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.Dataset(r.datasetID).Table(categoriesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("EnsureCategories: inserting rows: %w", err)
	}
	return nil
}

// missingCategoryRows returns rows for the categories of want that are not
// in existing, positioned after the existing ones.
func missingCategoryRows(existing, want []domain.Category, now time.Time) []*CategoryRow {
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	var rows []*CategoryRow
	pos := int64(len(existing))
	for _, c := range want {
		if known[c.ID] {
			continue
		}
		known[c.ID] = true
		rows = append(rows, &CategoryRow{
			CategoryID: c.ID,
			Name:       c.Name,
			Color:      bigquery.NullString{StringVal: c.Color, Valid: c.Color != ""},
			Position:   pos,
			CreatedTS:  now,
		})
		pos++
	}
	return rows
}

// ListUsers returns all roommates ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	q := r.client.Query(`
		SELECT user_id, name, created_ts
		FROM ` + r.table(usersTable) + `
		ORDER BY name, user_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUsers: query read: %w", err)
	}

	users := []domain.User{}
	for {
		var row UserRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUsers: iter next: %w", err)
		}
		users = append(users, domain.User{ID: row.UserID, Name: row.Name})
	}

	return users, nil
}

// CreateUser inserts a roommate.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	sql := `
		INSERT INTO ` + r.table(usersTable) + ` (user_id, name, created_ts)
		VALUES (@user_id, @name, @created_ts)
	`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: u.ID},
		{Name: "name", Value: u.Name},
		{Name: "created_ts", Value: time.Now()},
	}

	_, err := r.runDML(ctx, "CreateUser", sql, params)
	return err
}

// UpdateUser renames a roommate. It returns ledger.ErrNotFound when no row
// matched.
func (r *Repository) UpdateUser(ctx context.Context, u domain.User) error {
	sql := `
		UPDATE ` + r.table(usersTable) + `
		SET name = @name
		WHERE user_id = @user_id
	`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: u.ID},
		{Name: "name", Value: u.Name},
	}

	affected, err := r.runDML(ctx, "UpdateUser", sql, params)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("UpdateUser: user %s: %w", u.ID, ledger.ErrNotFound)
	}
	return nil
}
