package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
)

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	CategoryID string  `json:"categoryId"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
}

// UserTotals are the income and expense totals of one roommate.
type UserTotals struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Summary aggregates the transactions of a date range.
type Summary struct {
	From             string          `json:"from,omitempty"`
	To               string          `json:"to,omitempty"`
	Income           float64         `json:"income"`
	Expense          float64         `json:"expense"`
	Net              float64         `json:"net"`
	TransactionCount int             `json:"transactionCount"`
	ByCategory       []CategoryTotal `json:"byCategory"`
	ByUser           []UserTotals    `json:"byUser"`
}

// Summary totals income and expense between from and to, both inclusive.
// A zero date leaves that end open. Categories are ordered by spend,
// largest first.
func (s *Service) Summary(ctx context.Context, from, to civil.Date) (*Summary, error) {
	txs, err := s.Transactions(ctx, TransactionFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	users, cats, err := s.ReferenceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("Summary: %w", err)
	}
	return summarize(txs, users, cats, from, to), nil
}

func summarize(txs []domain.Transaction, users, cats []domain.ReferenceEntity, from, to civil.Date) *Summary {
	sum := &Summary{
		TransactionCount: len(txs),
		ByCategory:       []CategoryTotal{},
		ByUser:           []UserTotals{},
	}
	if from.IsValid() {
		sum.From = from.String()
	}
	if to.IsValid() {
		sum.To = to.String()
	}

	catNames := names(cats)
	userNames := names(users)

	byCat := map[string]float64{}
	byUser := map[string]*UserTotals{}
	for _, tx := range txs {
		ut, ok := byUser[tx.UserID]
		if !ok {
			ut = &UserTotals{UserID: tx.UserID, Name: userNames[tx.UserID]}
			byUser[tx.UserID] = ut
		}
		switch tx.Type {
		case domain.TypeIncome:
			sum.Income += tx.Amount
			ut.Income += tx.Amount
		case domain.TypeExpense:
			sum.Expense += tx.Amount
			ut.Expense += tx.Amount
			byCat[tx.CategoryID] += tx.Amount
		}
	}
	sum.Income = round2(sum.Income)
	sum.Expense = round2(sum.Expense)
	sum.Net = round2(sum.Income - sum.Expense)

	for id, total := range byCat {
		sum.ByCategory = append(sum.ByCategory, CategoryTotal{CategoryID: id, Name: catNames[id], Total: round2(total)})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.CategoryID < b.CategoryID
	})

	for _, ut := range byUser {
		ut.Income = round2(ut.Income)
		ut.Expense = round2(ut.Expense)
		sum.ByUser = append(sum.ByUser, *ut)
	}
	sort.Slice(sum.ByUser, func(i, j int) bool { return sum.ByUser[i].UserID < sum.ByUser[j].UserID })

	return sum
}

// ReviewRequest builds the subscription review input from the expenses of
// the last months months, ending today.
func (s *Service) ReviewRequest(ctx context.Context, months int) (assistant.SubscriptionReviewRequest, error) {
	if months <= 0 {
		return assistant.SubscriptionReviewRequest{}, fmt.Errorf("ReviewRequest: %w: months must be positive, got %d", ErrInvalidInput, months)
	}
	today := s.Today()
	txs, err := s.Transactions(ctx, TransactionFilter{
		From: civil.DateOf(today.In(time.UTC).AddDate(0, -months, 0)),
		To:   today,
		Type: domain.TypeExpense,
	})
	if err != nil {
		return assistant.SubscriptionReviewRequest{}, fmt.Errorf("ReviewRequest: %w", err)
	}

	req := assistant.SubscriptionReviewRequest{
		Transactions:         make([]assistant.ReviewTransaction, 0, len(txs)),
		AnalysisPeriodMonths: months,
	}
	for _, tx := range txs {
		req.Transactions = append(req.Transactions, assistant.ReviewTransaction{
			Description: tx.Description,
			Date:        tx.Date.String(),
			Amount:      tx.Amount,
		})
	}
	return req, nil
}

func names(refs []domain.ReferenceEntity) map[string]string {
	m := make(map[string]string, len(refs))
	for _, r := range refs {
		m[r.ID] = r.Name
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
