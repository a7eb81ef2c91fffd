package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Resolver turns one utterance into one action.
// This interface enables mocking and testing of the chat flow.
type Resolver interface {
	Resolve(ctx context.Context, req assistant.Request) domain.Action
}

// ChatResult is the outcome of one chat turn. Transaction is set only when
// the action was an AddTransaction that got recorded.
type ChatResult struct {
	Action      domain.Action
	Transaction *domain.Transaction
}

// Service is the application layer over the repositories and the resolver.
type Service struct {
	repo       Repository
	resolver   Resolver
	log        zerolog.Logger
	autoRecord bool
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAutoRecord makes Chat record AddTransaction actions immediately.
func WithAutoRecord(on bool) ServiceOption {
	return func(s *Service) { s.autoRecord = on }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger service. resolver may be nil when the chat
// assistant is not configured; Chat then fails.
func NewService(repo Repository, resolver Resolver, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		resolver: resolver,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in local time.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now())
}

// ReferenceData loads the users and categories the resolver works against.
func (s *Service) ReferenceData(ctx context.Context) ([]domain.ReferenceEntity, []domain.ReferenceEntity, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ReferenceData: list users: %w", err)
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("ReferenceData: list categories: %w", err)
	}
	return users, domain.CategoryRefs(cats), nil
}

// Chat resolves one utterance. The returned error is only for storage
// failures; everything the resolver decides is in the action.
func (s *Service) Chat(ctx context.Context, utterance string, today civil.Date) (*ChatResult, error) {
	if s.resolver == nil {
		return &ChatResult{Action: domain.Error{ErrorMessage: assistant.NoBackendMessage}}, nil
	}
	if !today.IsValid() {
		today = s.Today()
	}

	users, cats, err := s.ReferenceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("Chat: %w", err)
	}

	action := s.resolver.Resolve(ctx, assistant.Request{
		Utterance:   utterance,
		Users:       users,
		Categories:  cats,
		CurrentDate: today.String(),
	})

	result := &ChatResult{Action: action}
	add, ok := action.(domain.AddTransaction)
	if !s.autoRecord || !ok {
		return result, nil
	}

	if question := unrecordable(add, assistant.NewReferenceData(users, cats)); question != "" {
		s.log.Warn().
			Str("user_id", add.UserID).
			Str("category_id", add.CategoryID).
			Msg("Resolved transaction does not match the reference data")
		result.Action = domain.Clarify{ClarificationNeeded: question}
		return result, nil
	}

	tx, err := s.Execute(ctx, add)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidInput):
		// The roommate or category went away between Resolve and Record,
		// or the action failed validation. Ask again instead of failing.
		s.log.Warn().Err(err).Msg("Resolved transaction could not be recorded")
		result.Action = domain.Clarify{ClarificationNeeded: fmt.Sprintf(
			"I couldn't record %q. Could you say who paid, how much and for what again?", add.Description)}
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("Chat: %w", err)
	}
	result.Transaction = tx
	return result, nil
}

// unrecordable returns a follow-up question when add names a payer or a
// category that is not in ref, and "" when it can be recorded.
func unrecordable(add domain.AddTransaction, ref *assistant.ReferenceData) string {
	if !ref.HasUser(add.UserID) {
		if len(ref.Users) == 0 {
			return "There are no roommates yet. Add one first, then tell me about the expense."
		}
		names := make([]string, 0, len(ref.Users))
		for _, u := range ref.Users {
			names = append(names, u.Name)
		}
		return fmt.Sprintf("Who paid for %q? Please name one of: %s.", add.Description, strings.Join(names, ", "))
	}
	if !ref.HasCategory(add.CategoryID) {
		return fmt.Sprintf("Which category does %q belong to?", add.Description)
	}
	return ""
}

// Execute performs the side effect of an action. Only AddTransaction has
// one; every other action yields ErrNotExecutable.
func (s *Service) Execute(ctx context.Context, action domain.Action) (*domain.Transaction, error) {
	add, ok := action.(domain.AddTransaction)
	if !ok {
		kind := "nil"
		if action != nil {
			kind = string(action.Kind())
		}
		return nil, fmt.Errorf("Execute: %s: %w", kind, ErrNotExecutable)
	}
	tx, err := s.Record(ctx, add, "")
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Record validates and stores a transaction. The payer and the category
// must exist.
func (s *Service) Record(ctx context.Context, add domain.AddTransaction, notes string) (domain.Transaction, error) {
	tx, err := s.buildTransaction(ctx, add, notes)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Record: %w", err)
	}
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now().UTC()

	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("Record: insert: %w", err)
	}

	s.log.Info().
		Str("transaction_id", tx.ID).
		Str("user_id", tx.UserID).
		Str("category_id", tx.CategoryID).
		Float64("amount", tx.Amount).
		Str("type", string(tx.Type)).
		Msg("Transaction recorded")

	return tx, nil
}

// Transaction returns one transaction by id.
func (s *Service) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	if id == "" {
		return domain.Transaction{}, fmt.Errorf("Transaction: %w: id is required", ErrInvalidInput)
	}
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("Transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction replaces every editable field of transaction id. The
// id and creation time are kept.
func (s *Service) UpdateTransaction(ctx context.Context, id string, add domain.AddTransaction, notes string) (domain.Transaction, error) {
	if id == "" {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w: id is required", ErrInvalidInput)
	}
	existing, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	tx, err := s.buildTransaction(ctx, add, notes)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	tx.ID = existing.ID
	tx.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}
	s.log.Info().Str("transaction_id", tx.ID).Msg("Transaction updated")
	return tx, nil
}

// buildTransaction validates add against the stored roommates and
// categories. ID and CreatedAt are left for the caller.
func (s *Service) buildTransaction(ctx context.Context, add domain.AddTransaction, notes string) (domain.Transaction, error) {
	amount := add.Amount
	if _, err := assistant.ValidateCandidate(assistant.Candidate{
		UserID:      add.UserID,
		Description: add.Description,
		Amount:      &amount,
		Date:        add.Date,
		CategoryID:  add.CategoryID,
		Type:        add.Type,
	}); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	date, err := civil.ParseDate(add.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: date: %v", ErrInvalidInput, err)
	}

	users, cats, err := s.ReferenceData(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if !containsID(users, add.UserID) {
		return domain.Transaction{}, fmt.Errorf("user %q: %w", add.UserID, ErrNotFound)
	}
	if !containsID(cats, add.CategoryID) {
		return domain.Transaction{}, fmt.Errorf("category %q: %w", add.CategoryID, ErrNotFound)
	}

	return domain.Transaction{
		UserID:      add.UserID,
		Date:        date,
		Description: add.Description,
		Amount:      add.Amount,
		Type:        add.Type,
		CategoryID:  add.CategoryID,
		Notes:       strings.TrimSpace(notes),
	}, nil
}

// Transactions lists transactions matching filter, newest first.
func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	if filter.From.IsValid() && filter.To.IsValid() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("Transactions: %w: end date %s before start date %s", ErrInvalidInput, filter.To, filter.From)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("Transactions: %w: type %q", ErrInvalidInput, filter.Type)
	}
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes a transaction by id.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("DeleteTransaction: %w: id is required", ErrInvalidInput)
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// Users lists roommates.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("Users: %w", err)
	}
	return users, nil
}

// AddUser creates a roommate. Names are unique, ignoring case.
func (s *Service) AddUser(ctx context.Context, name string) (domain.User, error) {
	name, err := s.uniqueUserName(ctx, name, "")
	if err != nil {
		return domain.User{}, fmt.Errorf("AddUser: %w", err)
	}

	u := domain.User{ID: uuid.NewString(), Name: name}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("AddUser: %w", err)
	}
	return u, nil
}

// RenameUser changes a roommate's name. The new name must not belong to
// another roommate.
func (s *Service) RenameUser(ctx context.Context, id, name string) (domain.User, error) {
	if id == "" {
		return domain.User{}, fmt.Errorf("RenameUser: %w: id is required", ErrInvalidInput)
	}
	name, err := s.uniqueUserName(ctx, name, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("RenameUser: %w", err)
	}

	u := domain.User{ID: id, Name: name}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return domain.User{}, fmt.Errorf("RenameUser: %w", err)
	}
	return u, nil
}

// DeleteUser removes a roommate that no transaction or budget refers to.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("DeleteUser: %w: id is required", ErrInvalidInput)
	}

	txs, err := s.repo.ListTransactions(ctx, TransactionFilter{UserID: id, Limit: 1})
	if err != nil {
		return fmt.Errorf("DeleteUser: %w", err)
	}
	if len(txs) > 0 {
		return fmt.Errorf("DeleteUser: user %s has transactions: %w", id, ErrInUse)
	}
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("DeleteUser: %w", err)
	}
	for _, b := range budgets {
		if b.UserID == id {
			return fmt.Errorf("DeleteUser: user %s has budgets: %w", id, ErrInUse)
		}
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("DeleteUser: %w", err)
	}
	s.log.Info().Str("user_id", id).Msg("User deleted")
	return nil
}

// uniqueUserName trims name and checks no roommate other than selfID
// already uses it.
func (s *Service) uniqueUserName(ctx context.Context, name, selfID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.ID != selfID && strings.EqualFold(u.Name, name) {
			return "", fmt.Errorf("%w: user %q already exists", ErrInvalidInput, name)
		}
	}
	return name, nil
}

// Categories lists categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return cats, nil
}

// SeedCategories stores DefaultCategories that are not present yet.
func (s *Service) SeedCategories(ctx context.Context) error {
	if err := s.repo.EnsureCategories(ctx, DefaultCategories); err != nil {
		return fmt.Errorf("SeedCategories: %w", err)
	}
	return nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func containsID(refs []domain.ReferenceEntity, id string) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}
