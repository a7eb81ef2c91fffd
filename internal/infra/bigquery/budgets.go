package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
)

type BudgetRow struct {
	BudgetID   string     `bigquery:"budget_id"`   // REQUIRED
	UserID     string     `bigquery:"user_id"`     // REQUIRED
	CategoryID string     `bigquery:"category_id"` // REQUIRED
	Name       string     `bigquery:"name"`        // REQUIRED
	Amount     *big.Rat   `bigquery:"amount"`      // REQUIRED NUMERIC, > 0
	Period     string     `bigquery:"period"`      // REQUIRED monthly | yearly
	StartDate  civil.Date `bigquery:"start_date"`  // REQUIRED
	CreatedTS  time.Time  `bigquery:"created_ts"`  // REQUIRED
}

func newBudgetRow(b domain.Budget) (*BudgetRow, error) {
	amount, err := ratFromFloat(b.Amount)
	if err != nil {
		return nil, fmt.Errorf("budget %s: %w", b.ID, err)
	}
	return &BudgetRow{
		BudgetID:   b.ID,
		UserID:     b.UserID,
		CategoryID: b.CategoryID,
		Name:       b.Name,
		Amount:     amount,
		Period:     string(b.Period),
		StartDate:  b.StartDate,
		CreatedTS:  b.CreatedAt,
	}, nil
}

// Budget converts the row back into a domain budget.
func (r *BudgetRow) Budget() domain.Budget {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return domain.Budget{
		ID:         r.BudgetID,
		UserID:     r.UserID,
		CategoryID: r.CategoryID,
		Name:       r.Name,
		Amount:     amount,
		Period:     domain.BudgetPeriod(r.Period),
		StartDate:  r.StartDate,
		CreatedAt:  r.CreatedTS,
	}
}
