package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/google/uuid"
)

// BudgetInput is the editable part of a budget.
type BudgetInput struct {
	UserID     string              `json:"userId"`
	CategoryID string              `json:"categoryId"`
	Name       string              `json:"name"`
	Amount     float64             `json:"amount"`
	Period     domain.BudgetPeriod `json:"period"`
	StartDate  civil.Date          `json:"startDate"`
}

// BudgetStatus is a budget with its spending over a window.
type BudgetStatus struct {
	domain.Budget
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"` // negative once over budget
	Progress  float64 `json:"progress"`  // percent spent, capped at 100
}

func newBudgetStatus(b domain.Budget, spent float64) BudgetStatus {
	progress := 0.0
	if b.Amount > 0 {
		progress = math.Min(100, spent*100/b.Amount)
	}
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount - spent,
		Progress:  progress,
	}
}

// AddBudget validates and stores a new budget.
func (s *Service) AddBudget(ctx context.Context, in BudgetInput) (domain.Budget, error) {
	b, err := s.buildBudget(ctx, in)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("AddBudget: %w", err)
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.now().UTC()

	if err := s.repo.InsertBudget(ctx, b); err != nil {
		return domain.Budget{}, fmt.Errorf("AddBudget: insert: %w", err)
	}

	s.log.Info().
		Str("budget_id", b.ID).
		Str("user_id", b.UserID).
		Str("period", string(b.Period)).
		Float64("amount", b.Amount).
		Msg("Budget added")
	return b, nil
}

// UpdateBudget replaces every editable field of budget id.
func (s *Service) UpdateBudget(ctx context.Context, id string, in BudgetInput) (domain.Budget, error) {
	existing, err := s.findBudget(ctx, id)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("UpdateBudget: %w", err)
	}
	b, err := s.buildBudget(ctx, in)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("UpdateBudget: %w", err)
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return domain.Budget{}, fmt.Errorf("UpdateBudget: %w", err)
	}
	return b, nil
}

// DeleteBudget removes a budget by id.
func (s *Service) DeleteBudget(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("DeleteBudget: %w: id is required", ErrInvalidInput)
	}
	if err := s.repo.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}

// Budgets returns the budgets active in w with what their owners spent in
// w. A zero window lists every budget with lifetime spending.
func (s *Service) Budgets(ctx context.Context, w domain.Window) ([]BudgetStatus, error) {
	if err := validWindow(w); err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}

	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}

	var active []domain.Budget
	for _, b := range budgets {
		if b.ActiveIn(w) {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return []BudgetStatus{}, nil
	}

	spentBy, err := s.expensesByUser(ctx, "", w)
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}

	statuses := make([]BudgetStatus, 0, len(active))
	for _, b := range active {
		statuses = append(statuses, newBudgetStatus(b, spentBy[b.UserID]))
	}
	return statuses, nil
}

// BudgetSpent sums the user's expenses in w across every category.
func (s *Service) BudgetSpent(ctx context.Context, userID string, w domain.Window) (float64, error) {
	if userID == "" {
		return 0, fmt.Errorf("BudgetSpent: %w: user id is required", ErrInvalidInput)
	}
	if err := validWindow(w); err != nil {
		return 0, fmt.Errorf("BudgetSpent: %w", err)
	}
	spentBy, err := s.expensesByUser(ctx, userID, w)
	if err != nil {
		return 0, fmt.Errorf("BudgetSpent: %w", err)
	}
	return spentBy[userID], nil
}

// expensesByUser totals expenses in w per user. userID narrows the query
// when set.
func (s *Service) expensesByUser(ctx context.Context, userID string, w domain.Window) (map[string]float64, error) {
	filter := TransactionFilter{UserID: userID, Type: domain.TypeExpense}
	if w.Year != 0 {
		filter.From = civil.Date{Year: w.Year, Month: time.January, Day: 1}
		filter.To = civil.Date{Year: w.Year, Month: time.December, Day: 31}
	}
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	spent := make(map[string]float64)
	for _, tx := range txs {
		if w.Contains(tx.Date) {
			spent[tx.UserID] += tx.Amount
		}
	}
	return spent, nil
}

func (s *Service) buildBudget(ctx context.Context, in BudgetInput) (domain.Budget, error) {
	name := strings.TrimSpace(in.Name)
	var problems []string
	if name == "" {
		problems = append(problems, "name is required")
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		problems = append(problems, "amount must be greater than 0")
	}
	if !in.Period.Valid() {
		problems = append(problems, fmt.Sprintf("period %q, expected monthly or yearly", in.Period))
	}
	if !in.StartDate.IsValid() {
		problems = append(problems, "start date is required")
	}
	if len(problems) > 0 {
		return domain.Budget{}, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}

	users, cats, err := s.ReferenceData(ctx)
	if err != nil {
		return domain.Budget{}, err
	}
	if !containsID(users, in.UserID) {
		return domain.Budget{}, fmt.Errorf("user %q: %w", in.UserID, ErrNotFound)
	}
	if !containsID(cats, in.CategoryID) {
		return domain.Budget{}, fmt.Errorf("category %q: %w", in.CategoryID, ErrNotFound)
	}

	return domain.Budget{
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Name:       name,
		Amount:     in.Amount,
		Period:     in.Period,
		StartDate:  in.StartDate,
	}, nil
}

func (s *Service) findBudget(ctx context.Context, id string) (domain.Budget, error) {
	if id == "" {
		return domain.Budget{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return domain.Budget{}, err
	}
	for _, b := range budgets {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Budget{}, fmt.Errorf("budget %s: %w", id, ErrNotFound)
}

func validWindow(w domain.Window) error {
	if w.Month < 0 || w.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, w.Month)
	}
	if w.Year < 0 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, w.Year)
	}
	return nil
}
