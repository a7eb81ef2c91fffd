package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"google.golang.org/api/iterator"
)

// InsertTransaction inserts one transaction. Uses DML INSERT rather than
// the streaming inserter so the row can be deleted right away.
func (r *Repository) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	row, err := newTransactionRow(tx)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}

	sql := `
		INSERT INTO ` + r.table(transactionsTable) + ` (
			transaction_id, user_id, transaction_date,
			description, amount, type,
			category_id, notes, created_ts
		)
		VALUES (
			@transaction_id, @user_id, @transaction_date,
			@description, @amount, @type,
			@category_id, @notes, @created_ts
		)
	`
	params := []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "type", Value: row.Type},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	_, err = r.runDML(ctx, "InsertTransaction", sql, params)
	return err
}

// GetTransaction returns one transaction by id, or ledger.ErrNotFound.
func (r *Repository) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	q := r.client.Query(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			description,
			amount,
			type,
			category_id,
			notes,
			created_ts
		FROM ` + r.table(transactionsTable) + `
		WHERE transaction_id = @transaction_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: transaction %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return row.Transaction(), nil
}

// UpdateTransaction rewrites every column but the id and created_ts. It
// returns ledger.ErrNotFound when no row matched.
func (r *Repository) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	row, err := newTransactionRow(tx)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}

	sql := `
		UPDATE ` + r.table(transactionsTable) + `
		SET
			user_id = @user_id,
			transaction_date = @transaction_date,
			description = @description,
			amount = @amount,
			type = @type,
			category_id = @category_id,
			notes = @notes
		WHERE transaction_id = @transaction_id
	`
	params := []bigquery.QueryParameter{
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "user_id", Value: row.UserID},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "type", Value: row.Type},
		{Name: "category_id", Value: row.CategoryID},
		{Name: "notes", Value: row.Notes},
	}

	affected, err := r.runDML(ctx, "UpdateTransaction", sql, params)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", tx.ID, ledger.ErrNotFound)
	}
	return nil
}

// ListTransactions returns matching transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	sql, params := buildTransactionsQuery(r.table(transactionsTable), filter)

	q := r.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	txs := []domain.Transaction{}
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		txs = append(txs, row.Transaction())
	}

	return txs, nil
}

// buildTransactionsQuery renders the SELECT for filter. Every filter value
// travels as a query parameter.
func buildTransactionsQuery(table string, filter ledger.TransactionFilter) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)

	if filter.From.IsValid() {
		where = append(where, "transaction_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: filter.From})
	}
	if filter.To.IsValid() {
		where = append(where, "transaction_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: filter.To})
	}
	if filter.UserID != "" {
		where = append(where, "user_id = @user_id")
		params = append(params, bigquery.QueryParameter{Name: "user_id", Value: filter.UserID})
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = @category_id")
		params = append(params, bigquery.QueryParameter{Name: "category_id", Value: filter.CategoryID})
	}
	if filter.Type != "" {
		where = append(where, "type = @type")
		params = append(params, bigquery.QueryParameter{Name: "type", Value: string(filter.Type)})
	}

	var b strings.Builder
	b.WriteString(`SELECT
			transaction_id,
			user_id,
			transaction_date,
			description,
			amount,
			type,
			category_id,
			notes,
			created_ts
		FROM `)
	b.WriteString(table)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, "\n\t\t  AND "))
	}
	b.WriteString("\n\t\tORDER BY transaction_date DESC, created_ts DESC, transaction_id")
	if filter.Limit > 0 {
		b.WriteString("\n\t\tLIMIT @limit")
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: filter.Limit})
	}

	return b.String(), params
}
