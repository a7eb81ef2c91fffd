package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/assistant"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/dvloznov/zerobalance/internal/store/memory"
	"github.com/google/go-cmp/cmp"
)

// fakeResolver returns a fixed action and records the request it saw.
type fakeResolver struct {
	action domain.Action
	got    assistant.Request
}

func (f *fakeResolver) Resolve(_ context.Context, req assistant.Request) domain.Action {
	f.got = req
	return f.action
}

// failingRepo fails every user lookup.
type failingRepo struct {
	*memory.Store
}

func (failingRepo) ListUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("bigquery unavailable")
}

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, resolver ledger.Resolver, opts ...ledger.ServiceOption) (*ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	if err := store.EnsureCategories(ctx, ledger.DefaultCategories); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u1", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Name: "Bob"}); err != nil {
		t.Fatal(err)
	}
	opts = append([]ledger.ServiceOption{ledger.WithClock(func() time.Time { return fixedNow })}, opts...)
	return ledger.NewService(store, resolver, opts...), store
}

func groceries() domain.AddTransaction {
	return domain.AddTransaction{
		UserID:      "u1",
		Description: "Groceries",
		Amount:      500,
		Date:        "2024-03-09",
		CategoryID:  "food-dining",
		Type:        domain.TypeExpense,
	}
}

func TestService_Chat_PassesReferenceData(t *testing.T) {
	res := &fakeResolver{action: domain.Info{AIResponse: "Hi"}}
	svc, _ := newService(t, res)

	result, err := svc.Chat(context.Background(), "hello", civil.Date{})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if diff := cmp.Diff(domain.Action(domain.Info{AIResponse: "Hi"}), result.Action); diff != "" {
		t.Errorf("Chat() action mismatch (-want +got):\n%s", diff)
	}
	if result.Transaction != nil {
		t.Error("Chat() recorded a transaction for INFO")
	}

	if res.got.CurrentDate != "2024-03-10" {
		t.Errorf("CurrentDate = %q, want clock date 2024-03-10", res.got.CurrentDate)
	}
	if len(res.got.Users) != 2 || len(res.got.Categories) != len(ledger.DefaultCategories) {
		t.Errorf("reference data not passed: %d users, %d categories", len(res.got.Users), len(res.got.Categories))
	}
	if res.got.Categories[len(res.got.Categories)-1] != (domain.ReferenceEntity{ID: "other", Name: "Other"}) {
		t.Errorf("last category = %+v", res.got.Categories[len(res.got.Categories)-1])
	}
}

func TestService_Chat_AutoRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("records when enabled", func(t *testing.T) {
		svc, store := newService(t, &fakeResolver{action: groceries()}, ledger.WithAutoRecord(true))

		result, err := svc.Chat(ctx, "Paid 500 for groceries yesterday", civil.Date{Year: 2024, Month: 3, Day: 10})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Transaction == nil {
			t.Fatal("Chat() did not record the transaction")
		}
		stored, _ := store.ListTransactions(ctx, ledger.TransactionFilter{})
		if len(stored) != 1 || stored[0].ID != result.Transaction.ID {
			t.Errorf("stored = %+v", stored)
		}
	})

	t.Run("leaves store alone when disabled", func(t *testing.T) {
		svc, store := newService(t, &fakeResolver{action: groceries()})

		result, err := svc.Chat(ctx, "Paid 500 for groceries yesterday", civil.Date{})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Transaction != nil {
			t.Error("Chat() recorded without auto-record")
		}
		stored, _ := store.ListTransactions(ctx, ledger.TransactionFilter{})
		if len(stored) != 0 {
			t.Errorf("store has %d transactions, want 0", len(stored))
		}
	})
}

// insertFailingRepo stores nothing.
type insertFailingRepo struct {
	*memory.Store
}

func (insertFailingRepo) InsertTransaction(context.Context, domain.Transaction) error {
	return errors.New("bigquery unavailable")
}

// payerByName stands in for a model that answers with the payer's name
// instead of one of the supplied ids.
func payerByName(payer string) assistant.Extractor {
	return assistant.ExtractorFunc(func(context.Context, assistant.ExtractionRequest) (*assistant.LooseAction, error) {
		return assistant.ParseLooseAction(`{"action":"ADD_TRANSACTION","params":{"userId":"` + payer +
			`","description":"Pizza night","amount":30,"date":"2024-03-09","categoryName":"Food & Dining","type":"expense"}}`)
	})
}

func TestService_Chat_AutoRecordUnknownReference(t *testing.T) {
	ctx := context.Background()
	today := civil.Date{Year: 2024, Month: 3, Day: 10}

	tests := []struct {
		name     string
		resolver ledger.Resolver
		noUsers  bool
		want     string
	}{
		{
			name:     "payer given by name",
			resolver: assistant.NewResolver(payerByName("Alice")),
			want:     `Who paid for "Pizza night"? Please name one of: Alice, Bob.`,
		},
		{
			name:     "no roommates yet",
			resolver: assistant.NewResolver(payerByName("Alice")),
			noUsers:  true,
			want:     "There are no roommates yet. Add one first, then tell me about the expense.",
		},
		{
			name: "category id not stored",
			resolver: &fakeResolver{action: func() domain.Action {
				add := groceries()
				add.CategoryID = "pets"
				return add
			}()},
			want: `Which category does "Groceries" belong to?`,
		},
		{
			name: "fails validation",
			resolver: &fakeResolver{action: func() domain.Action {
				add := groceries()
				add.Date = "2024-02-30"
				return add
			}()},
			want: `I couldn't record "Groceries". Could you say who paid, how much and for what again?`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				svc   *ledger.Service
				store *memory.Store
			)
			if tt.noUsers {
				store = memory.NewStore()
				if err := store.EnsureCategories(ctx, ledger.DefaultCategories); err != nil {
					t.Fatal(err)
				}
				svc = ledger.NewService(store, tt.resolver, ledger.WithAutoRecord(true))
			} else {
				svc, store = newService(t, tt.resolver, ledger.WithAutoRecord(true))
			}

			result, err := svc.Chat(ctx, "Alice paid 30 for pizza night", today)
			if err != nil {
				t.Fatalf("Chat() error = %v, want a clarification", err)
			}
			if diff := cmp.Diff(domain.Action(domain.Clarify{ClarificationNeeded: tt.want}), result.Action); diff != "" {
				t.Errorf("Chat() action mismatch (-want +got):\n%s", diff)
			}
			if result.Transaction != nil {
				t.Errorf("Chat() recorded %+v", result.Transaction)
			}
			stored, _ := store.ListTransactions(ctx, ledger.TransactionFilter{})
			if len(stored) != 0 {
				t.Errorf("store has %d transactions, want 0", len(stored))
			}
		})
	}
}

func TestService_Chat_AutoRecordInsertFailure(t *testing.T) {
	ctx := context.Background()

	store := memory.NewStore()
	if err := store.EnsureCategories(ctx, ledger.DefaultCategories); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u1", Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	svc := ledger.NewService(insertFailingRepo{store}, &fakeResolver{action: groceries()}, ledger.WithAutoRecord(true))

	if _, err := svc.Chat(ctx, "Paid 500 for groceries", civil.Date{}); err == nil {
		t.Error("Chat() expected the storage error")
	}
}

func TestService_Chat_NoResolver(t *testing.T) {
	svc, _ := newService(t, nil)
	result, err := svc.Chat(context.Background(), "hello", civil.Date{})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Action.Kind() != domain.KindError {
		t.Errorf("Chat() kind = %s, want ERROR", result.Action.Kind())
	}
}

func TestService_Chat_StorageFailure(t *testing.T) {
	svc := ledger.NewService(failingRepo{memory.NewStore()}, &fakeResolver{action: domain.Info{AIResponse: "x"}})
	if _, err := svc.Chat(context.Background(), "hello", civil.Date{}); err == nil {
		t.Error("Chat() expected error when users cannot be loaded")
	}
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.AddTransaction)
		wantErr error
	}{
		{name: "valid", mutate: func(*domain.AddTransaction) {}},
		{name: "unknown user", mutate: func(a *domain.AddTransaction) { a.UserID = "u9" }, wantErr: ledger.ErrNotFound},
		{name: "unknown category", mutate: func(a *domain.AddTransaction) { a.CategoryID = "pets" }, wantErr: ledger.ErrNotFound},
		{name: "zero amount", mutate: func(a *domain.AddTransaction) { a.Amount = 0 }, wantErr: ledger.ErrInvalidInput},
		{name: "impossible date", mutate: func(a *domain.AddTransaction) { a.Date = "2023-02-30" }, wantErr: ledger.ErrInvalidInput},
		{name: "bad type", mutate: func(a *domain.AddTransaction) { a.Type = "refund" }, wantErr: ledger.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, nil)
			add := groceries()
			tt.mutate(&add)

			got, err := svc.Record(ctx, add, "  weekly shop ")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Record() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Record() error = %v", err)
			}

			want := domain.Transaction{
				ID:          got.ID,
				UserID:      "u1",
				Date:        civil.Date{Year: 2024, Month: 3, Day: 9},
				Description: "Groceries",
				Amount:      500,
				Type:        domain.TypeExpense,
				CategoryID:  "food-dining",
				Notes:       "weekly shop",
				CreatedAt:   fixedNow,
			}
			if got.ID == "" {
				t.Error("Record() did not assign an id")
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Record() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_Execute_NotExecutable(t *testing.T) {
	svc, _ := newService(t, nil)
	for _, a := range []domain.Action{
		domain.Info{AIResponse: "hi"},
		domain.Clarify{ClarificationNeeded: "who?"},
		domain.ListTransactions{},
		nil,
	} {
		if _, err := svc.Execute(context.Background(), a); !errors.Is(err, ledger.ErrNotExecutable) {
			t.Errorf("Execute(%T) error = %v, want ErrNotExecutable", a, err)
		}
	}
}

func TestService_Transactions_Validation(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Transactions(ctx, ledger.TransactionFilter{
		From: civil.Date{Year: 2024, Month: 3, Day: 10},
		To:   civil.Date{Year: 2024, Month: 3, Day: 1},
	})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("Transactions() error = %v, want ErrInvalidInput for reversed range", err)
	}

	if _, err := svc.Transactions(ctx, ledger.TransactionFilter{Type: "loan"}); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("Transactions() error = %v, want ErrInvalidInput for bad type", err)
	}
}

func TestService_DeleteTransaction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	tx, err := svc.Record(ctx, groceries(), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := svc.DeleteTransaction(ctx, tx.ID); !ledger.IsNotFound(err) {
		t.Errorf("DeleteTransaction() error = %v, want not found", err)
	}
}

func TestService_AddUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	u, err := svc.AddUser(ctx, "  Carol ")
	if err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}
	if u.Name != "Carol" || u.ID == "" {
		t.Errorf("AddUser() = %+v", u)
	}

	if _, err := svc.AddUser(ctx, "alice"); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("AddUser(duplicate) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.AddUser(ctx, " "); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("AddUser(blank) error = %v, want ErrInvalidInput", err)
	}

	users, _ := svc.Users(ctx)
	if len(users) != 3 {
		t.Errorf("Users() returned %d, want 3", len(users))
	}
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	for _, add := range []domain.AddTransaction{
		{UserID: "u1", Description: "Salary", Amount: 3000, Date: "2024-03-01", CategoryID: "income", Type: domain.TypeIncome},
		{UserID: "u1", Description: "Rent", Amount: 1200, Date: "2024-03-02", CategoryID: "housing", Type: domain.TypeExpense},
		{UserID: "u2", Description: "Groceries", Amount: 80.10, Date: "2024-03-03", CategoryID: "food-dining", Type: domain.TypeExpense},
		{UserID: "u2", Description: "Dinner out", Amount: 45.25, Date: "2024-03-04", CategoryID: "food-dining", Type: domain.TypeExpense},
		{UserID: "u1", Description: "Old trip", Amount: 999, Date: "2024-02-20", CategoryID: "travel", Type: domain.TypeExpense},
	} {
		if _, err := svc.Record(ctx, add, ""); err != nil {
			t.Fatalf("Record(%s) error = %v", add.Description, err)
		}
	}

	got, err := svc.Summary(ctx, civil.Date{Year: 2024, Month: 3, Day: 1}, civil.Date{Year: 2024, Month: 3, Day: 31})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	want := &ledger.Summary{
		From:             "2024-03-01",
		To:               "2024-03-31",
		Income:           3000,
		Expense:          1325.35,
		Net:              1674.65,
		TransactionCount: 4,
		ByCategory: []ledger.CategoryTotal{
			{CategoryID: "housing", Name: "Housing", Total: 1200},
			{CategoryID: "food-dining", Name: "Food & Dining", Total: 125.35},
		},
		ByUser: []ledger.UserTotals{
			{UserID: "u1", Name: "Alice", Income: 3000, Expense: 1200},
			{UserID: "u2", Name: "Bob", Expense: 125.35},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ReviewRequest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	for _, add := range []domain.AddTransaction{
		{UserID: "u1", Description: "NETFLIX.COM", Amount: 15.99, Date: "2024-02-05", CategoryID: "subscriptions", Type: domain.TypeExpense},
		{UserID: "u1", Description: "Salary", Amount: 3000, Date: "2024-03-01", CategoryID: "income", Type: domain.TypeIncome},
		{UserID: "u1", Description: "Ancient", Amount: 10, Date: "2023-01-01", CategoryID: "other", Type: domain.TypeExpense},
	} {
		if _, err := svc.Record(ctx, add, ""); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.ReviewRequest(ctx, 3)
	if err != nil {
		t.Fatalf("ReviewRequest() error = %v", err)
	}
	want := assistant.SubscriptionReviewRequest{
		Transactions:         []assistant.ReviewTransaction{{Description: "NETFLIX.COM", Date: "2024-02-05", Amount: 15.99}},
		AnalysisPeriodMonths: 3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReviewRequest() mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.ReviewRequest(ctx, 0); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("ReviewRequest(0) error = %v, want ErrInvalidInput", err)
	}
}
