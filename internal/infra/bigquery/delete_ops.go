package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/ledger"
)

// DeleteTransaction deletes a transaction by id. It returns
// ledger.ErrNotFound when no row matched.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "DeleteTransaction", transactionsTable, "transaction_id", id)
}

// DeleteUser deletes a roommate by id. It returns ledger.ErrNotFound when
// no row matched.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "DeleteUser", usersTable, "user_id", id)
}

// DeleteBudget deletes a budget by id. It returns ledger.ErrNotFound when
// no row matched.
func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "DeleteBudget", budgetsTable, "budget_id", id)
}

// deleteByID deletes the rows of table whose idColumn equals id. table and
// idColumn come from constants, never from callers.
func (r *Repository) deleteByID(ctx context.Context, op, table, idColumn, id string) error {
	sql := `
		DELETE FROM ` + r.table(table) + `
		WHERE ` + idColumn + ` = @id
	`
	params := []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	affected, err := r.runDML(ctx, op, sql, params)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %s %s: %w", op, table, id, ledger.ErrNotFound)
	}
	return nil
}
