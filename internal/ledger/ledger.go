package ledger

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
)

var (
	// ErrNotFound is returned when a user, category, transaction or
	// budget does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotExecutable is returned when an action has no side effect to
	// perform (anything but AddTransaction).
	ErrNotExecutable = errors.New("action is not executable")

	// ErrInvalidInput is returned for requests the service rejects before
	// touching storage.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInUse is returned when deleting a roommate that transactions or
	// budgets still point at.
	ErrInUse = errors.New("still in use")
)

// TransactionFilter selects transactions. Zero-valued fields do not filter.
type TransactionFilter struct {
	From       civil.Date // inclusive
	To         civil.Date // inclusive
	UserID     string
	CategoryID string
	Type       domain.TransactionType
	Limit      int
}

// Match reports whether tx passes the filter, ignoring Limit.
func (f TransactionFilter) Match(tx domain.Transaction) bool {
	if f.From.IsValid() && tx.Date.Before(f.From) {
		return false
	}
	if f.To.IsValid() && tx.Date.After(f.To) {
		return false
	}
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.CategoryID != "" && tx.CategoryID != f.CategoryID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	return true
}

// UserRepository stores roommates. UpdateUser and DeleteUser return
// ErrNotFound for an unknown id.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.User) error
	UpdateUser(ctx context.Context, u domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// CategoryRepository stores categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	// EnsureCategories inserts the categories whose ids are not stored yet.
	EnsureCategories(ctx context.Context, cats []domain.Category) error
}

// TransactionRepository stores transactions. ListTransactions returns the
// newest first (date, then creation time). Get, Update and Delete return
// ErrNotFound for an unknown id.
type TransactionRepository interface {
	InsertTransaction(ctx context.Context, tx domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// BudgetRepository stores budgets. ListBudgets returns them in creation
// order.
type BudgetRepository interface {
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	InsertBudget(ctx context.Context, b domain.Budget) error
	UpdateBudget(ctx context.Context, b domain.Budget) error
	DeleteBudget(ctx context.Context, id string) error
}

// Repository is the full storage surface used by Service.
type Repository interface {
	UserRepository
	CategoryRepository
	TransactionRepository
	BudgetRepository
}

// DefaultCategories are seeded into an empty category store.
var DefaultCategories = []domain.Category{
	{ID: "income", Name: "Income", Color: "hsl(var(--chart-1))"},
	{ID: "food-dining", Name: "Food & Dining", Color: "hsl(var(--chart-2))"},
	{ID: "transportation", Name: "Transportation", Color: "hsl(var(--chart-3))"},
	{ID: "housing", Name: "Housing", Color: "hsl(var(--chart-4))"},
	{ID: "utilities", Name: "Utilities", Color: "hsl(var(--chart-5))"},
	{ID: "entertainment", Name: "Entertainment", Color: "hsl(180, 70%, 50%)"},
	{ID: "health-wellness", Name: "Health & Wellness", Color: "hsl(200, 70%, 50%)"},
	{ID: "shopping", Name: "Shopping", Color: "hsl(220, 70%, 50%)"},
	{ID: "personal-care", Name: "Personal Care", Color: "hsl(240, 70%, 50%)"},
	{ID: "education", Name: "Education", Color: "hsl(260, 70%, 50%)"},
	{ID: "gifts-donations", Name: "Gifts & Donations", Color: "hsl(280, 70%, 50%)"},
	{ID: "travel", Name: "Travel", Color: "hsl(300, 70%, 50%)"},
	{ID: "subscriptions", Name: "Subscriptions", Color: "hsl(320, 70%, 50%)"},
	{ID: "business", Name: "Business", Color: "hsl(340, 70%, 50%)"},
	{ID: "other", Name: "Other", Color: "hsl(0, 0%, 70%)"},
}
