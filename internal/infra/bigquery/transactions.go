package bigquery

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, partition column

	Description string   `bigquery:"description"` // REQUIRED
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC, always positive
	Type        string   `bigquery:"type"`        // REQUIRED income | expense
	CategoryID  string   `bigquery:"category_id"` // REQUIRED
	Notes       string   `bigquery:"notes"`       // empty when absent

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// newTransactionRow maps a domain transaction onto the table schema.
func newTransactionRow(tx domain.Transaction) (*TransactionRow, error) {
	amount, err := ratFromFloat(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		TransactionDate: tx.Date,
		Description:     tx.Description,
		Amount:          amount,
		Type:            string(tx.Type),
		CategoryID:      tx.CategoryID,
		Notes:           tx.Notes,
		CreatedTS:       tx.CreatedAt,
	}, nil
}

// Transaction converts the row back into a domain transaction.
func (r *TransactionRow) Transaction() domain.Transaction {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return domain.Transaction{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Date:        r.TransactionDate,
		Description: r.Description,
		Amount:      amount,
		Type:        domain.TransactionType(r.Type),
		CategoryID:  r.CategoryID,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedTS,
	}
}

// ratFromFloat converts through the shortest decimal form so 15.99 is
// stored as 15.99 rather than its binary approximation.
func ratFromFloat(f float64) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("amount %v is not a finite number", f)
	}
	return r, nil
}
