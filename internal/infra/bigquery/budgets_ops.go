package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"google.golang.org/api/iterator"
)

// ListBudgets returns all budgets in creation order.
func (r *Repository) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	q := r.client.Query(`
		SELECT
		  budget_id,
		  user_id,
		  category_id,
		  name,
		  amount,
		  period,
		  start_date,
		  created_ts
		FROM ` + r.table(budgetsTable) + `
		ORDER BY created_ts, budget_id
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query read: %w", err)
	}

	budgets := []domain.Budget{}
	for {
		var row BudgetRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iter next: %w", err)
		}
		budgets = append(budgets, row.Budget())
	}

	return budgets, nil
}

// InsertBudget inserts one budget with DML so it can be edited right away.
func (r *Repository) InsertBudget(ctx context.Context, b domain.Budget) error {
	row, err := newBudgetRow(b)
	if err != nil {
		return fmt.Errorf("InsertBudget: %w", err)
	}

	sql := `
		INSERT INTO ` + r.table(budgetsTable) + ` (
			budget_id, user_id, category_id, name,
			amount, period, start_date, created_ts
		)
		VALUES (
			@budget_id, @user_id, @category_id, @name,
			@amount, @period, @start_date, @created_ts
		)
	`
	params := append(budgetParams(row), bigquery.QueryParameter{Name: "created_ts", Value: row.CreatedTS})

	_, err = r.runDML(ctx, "InsertBudget", sql, params)
	return err
}

// UpdateBudget rewrites every column but the id and created_ts. It returns
// ledger.ErrNotFound when no row matched.
func (r *Repository) UpdateBudget(ctx context.Context, b domain.Budget) error {
	row, err := newBudgetRow(b)
	if err != nil {
		return fmt.Errorf("UpdateBudget: %w", err)
	}

	sql := `
		UPDATE ` + r.table(budgetsTable) + `
		SET
			user_id = @user_id,
			category_id = @category_id,
			name = @name,
			amount = @amount,
			period = @period,
			start_date = @start_date
		WHERE budget_id = @budget_id
	`

	affected, err := r.runDML(ctx, "UpdateBudget", sql, budgetParams(row))
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("UpdateBudget: budget %s: %w", b.ID, ledger.ErrNotFound)
	}
	return nil
}

func budgetParams(row *BudgetRow) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "budget_id", Value: row.BudgetID},
		{Name: "user_id", Value: row.UserID},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "name", Value: row.Name},
		{Name: "amount", Value: row.Amount},
		{Name: "period", Value: row.Period},
		{Name: "start_date", Value: row.StartDate},
	}
}
