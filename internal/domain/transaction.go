package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Transaction is a recorded income or expense.
// This is a domain struct, not a BigQuery row; the bigquery package maps it
// into the transactions table schema.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`      // roommate who paid or received
	Date        civil.Date      `json:"date"`        // calendar date, no time of day
	Description string          `json:"description"` // free text
	Amount      float64         `json:"amount"`      // always positive; Type carries the sign
	Type        TransactionType `json:"type"`
	CategoryID  string          `json:"categoryId"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// SignedAmount returns the amount as a balance delta: positive for income,
// negative for expense.
func (t Transaction) SignedAmount() float64 {
	if t.Type == TypeExpense {
		return -t.Amount
	}
	return t.Amount
}
