package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
)

// Store is an in-memory implementation of ledger.Repository.
// It is safe for concurrent use. Data is lost on restart; use the
// BigQuery repository for persistence.
type Store struct {
	mu           sync.RWMutex
	users        []domain.User
	categories   []domain.Category
	transactions map[string]domain.Transaction
	budgets      []domain.Budget
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]domain.Transaction),
	}
}

// ListUsers returns users in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.User(nil), s.users...), nil
}

// CreateUser stores a user. The id must be unique.
func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if u.ID == "" {
		return fmt.Errorf("CreateUser: user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ID == u.ID {
			return fmt.Errorf("CreateUser: user %s already exists", u.ID)
		}
	}
	s.users = append(s.users, u)
	return nil
}

// UpdateUser replaces the stored user with the same id.
func (s *Store) UpdateUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			return nil
		}
	}
	return fmt.Errorf("UpdateUser: user %s: %w", u.ID, ledger.ErrNotFound)
}

// DeleteUser removes a user by id, keeping the order of the rest.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		if s.users[i].ID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("DeleteUser: user %s: %w", id, ledger.ErrNotFound)
}

// ListCategories returns categories in insertion order.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Category(nil), s.categories...), nil
}

// EnsureCategories appends the categories whose ids are not stored yet.
func (s *Store) EnsureCategories(ctx context.Context, cats []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]bool, len(s.categories))
	for _, c := range s.categories {
		known[c.ID] = true
	}
	for _, c := range cats {
		if c.ID == "" {
			return fmt.Errorf("EnsureCategories: category ID is required")
		}
		if known[c.ID] {
			continue
		}
		known[c.ID] = true
		s.categories = append(s.categories, c)
	}
	return nil
}

// InsertTransaction stores a transaction. The id must be unique.
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return fmt.Errorf("InsertTransaction: transaction %s already exists", tx.ID)
	}
	s.transactions[tx.ID] = tx
	return nil
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: transaction %s: %w", id, ledger.ErrNotFound)
	}
	return tx, nil
}

// UpdateTransaction replaces the stored transaction with the same id.
func (s *Store) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; !exists {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", tx.ID, ledger.ErrNotFound)
	}
	s.transactions[tx.ID] = tx
	return nil
}

// ListTransactions returns matching transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	result := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if filter.Match(tx) {
			result = append(result, tx)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Date != b.Date {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteTransaction removes a transaction by id.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[id]; !exists {
		return fmt.Errorf("DeleteTransaction: transaction %s: %w", id, ledger.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

// ListBudgets returns budgets in insertion order.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Budget(nil), s.budgets...), nil
}

// InsertBudget stores a budget. The id must be unique.
func (s *Store) InsertBudget(ctx context.Context, b domain.Budget) error {
	if b.ID == "" {
		return fmt.Errorf("InsertBudget: budget ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.budgetIndex(b.ID) >= 0 {
		return fmt.Errorf("InsertBudget: budget %s already exists", b.ID)
	}
	s.budgets = append(s.budgets, b)
	return nil
}

// UpdateBudget replaces the stored budget with the same id.
func (s *Store) UpdateBudget(ctx context.Context, b domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.budgetIndex(b.ID)
	if i < 0 {
		return fmt.Errorf("UpdateBudget: budget %s: %w", b.ID, ledger.ErrNotFound)
	}
	s.budgets[i] = b
	return nil
}

// DeleteBudget removes a budget by id.
func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.budgetIndex(id)
	if i < 0 {
		return fmt.Errorf("DeleteBudget: budget %s: %w", id, ledger.ErrNotFound)
	}
	s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
	return nil
}

// budgetIndex must be called with s.mu held.
func (s *Store) budgetIndex(id string) int {
	for i, b := range s.budgets {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Ensure Store implements ledger.Repository.
var _ ledger.Repository = (*Store)(nil)
