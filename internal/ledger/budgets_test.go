package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func foodBudget() ledger.BudgetInput {
	return ledger.BudgetInput{
		UserID:     "u1",
		CategoryID: "food-dining",
		Name:       " March food ",
		Amount:     400,
		Period:     domain.PeriodMonthly,
		StartDate:  civil.Date{Year: 2024, Month: time.March, Day: 1},
	}
}

func recordAll(t *testing.T, svc *ledger.Service, adds ...domain.AddTransaction) {
	t.Helper()
	for _, add := range adds {
		if _, err := svc.Record(context.Background(), add, ""); err != nil {
			t.Fatalf("Record(%s) error = %v", add.Description, err)
		}
	}
}

func TestService_AddBudget(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*ledger.BudgetInput)
		wantErr error
	}{
		{name: "valid", mutate: func(*ledger.BudgetInput) {}},
		{name: "blank name", mutate: func(in *ledger.BudgetInput) { in.Name = "  " }, wantErr: ledger.ErrInvalidInput},
		{name: "zero amount", mutate: func(in *ledger.BudgetInput) { in.Amount = 0 }, wantErr: ledger.ErrInvalidInput},
		{name: "weekly", mutate: func(in *ledger.BudgetInput) { in.Period = "weekly" }, wantErr: ledger.ErrInvalidInput},
		{name: "no start date", mutate: func(in *ledger.BudgetInput) { in.StartDate = civil.Date{} }, wantErr: ledger.ErrInvalidInput},
		{name: "unknown user", mutate: func(in *ledger.BudgetInput) { in.UserID = "u9" }, wantErr: ledger.ErrNotFound},
		{name: "unknown category", mutate: func(in *ledger.BudgetInput) { in.CategoryID = "pets" }, wantErr: ledger.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t, nil)
			in := foodBudget()
			tt.mutate(&in)

			got, err := svc.AddBudget(ctx, in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AddBudget() error = %v, want %v", err, tt.wantErr)
				}
				if stored, _ := store.ListBudgets(ctx); len(stored) != 0 {
					t.Errorf("stored %d budgets after a rejected add", len(stored))
				}
				return
			}
			if err != nil {
				t.Fatalf("AddBudget() error = %v", err)
			}

			want := domain.Budget{
				UserID:     "u1",
				CategoryID: "food-dining",
				Name:       "March food",
				Amount:     400,
				Period:     domain.PeriodMonthly,
				StartDate:  civil.Date{Year: 2024, Month: time.March, Day: 1},
				CreatedAt:  fixedNow,
			}
			if got.ID == "" {
				t.Error("AddBudget() did not assign an id")
			}
			if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.Budget{}, "ID")); diff != "" {
				t.Errorf("AddBudget() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_UpdateAndDeleteBudget(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)

	created, err := svc.AddBudget(ctx, foodBudget())
	if err != nil {
		t.Fatal(err)
	}

	in := foodBudget()
	in.Amount = 900
	in.Period = domain.PeriodYearly
	updated, err := svc.UpdateBudget(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("UpdateBudget() changed identity: %+v", updated)
	}
	stored, _ := store.ListBudgets(ctx)
	if diff := cmp.Diff([]domain.Budget{updated}, stored); diff != "" {
		t.Errorf("stored budgets mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.UpdateBudget(ctx, "missing", in); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("UpdateBudget(missing) error = %v, want ErrNotFound", err)
	}
	in.Amount = -1
	if _, err := svc.UpdateBudget(ctx, created.ID, in); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("UpdateBudget(negative) error = %v, want ErrInvalidInput", err)
	}

	if err := svc.DeleteBudget(ctx, created.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if err := svc.DeleteBudget(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("DeleteBudget(deleted) error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteBudget(ctx, ""); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("DeleteBudget(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestService_BudgetSpent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	recordAll(t, svc,
		domain.AddTransaction{UserID: "u1", Description: "Groceries", Amount: 120, Date: "2024-03-02", CategoryID: "food-dining", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u1", Description: "Bus pass", Amount: 30, Date: "2024-03-05", CategoryID: "transportation", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u1", Description: "Salary", Amount: 3000, Date: "2024-03-01", CategoryID: "income", Type: domain.TypeIncome},
		domain.AddTransaction{UserID: "u1", Description: "Groceries", Amount: 90, Date: "2023-03-10", CategoryID: "food-dining", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u1", Description: "Cinema", Amount: 15, Date: "2024-04-01", CategoryID: "entertainment", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u2", Description: "Groceries", Amount: 500, Date: "2024-03-02", CategoryID: "food-dining", Type: domain.TypeExpense},
	)

	tests := []struct {
		name   string
		window domain.Window
		want   float64
	}{
		{"all time", domain.Window{}, 255},
		{"one year", domain.Window{Year: 2024}, 165},
		{"one month", domain.Window{Month: time.March, Year: 2024}, 150},
		{"March of every year", domain.Window{Month: time.March}, 240},
		{"nothing spent", domain.Window{Month: time.May, Year: 2024}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.BudgetSpent(ctx, "u1", tt.window)
			if err != nil {
				t.Fatalf("BudgetSpent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BudgetSpent() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := svc.BudgetSpent(ctx, "", domain.Window{}); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("BudgetSpent(no user) error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.BudgetSpent(ctx, "u1", domain.Window{Month: 13}); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("BudgetSpent(month 13) error = %v, want ErrInvalidInput", err)
	}
}

func TestService_Budgets(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)
	recordAll(t, svc,
		domain.AddTransaction{UserID: "u1", Description: "Groceries", Amount: 300, Date: "2024-03-02", CategoryID: "food-dining", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u1", Description: "Concert", Amount: 200, Date: "2024-03-20", CategoryID: "entertainment", Type: domain.TypeExpense},
		domain.AddTransaction{UserID: "u2", Description: "Flights", Amount: 600, Date: "2024-08-01", CategoryID: "travel", Type: domain.TypeExpense},
	)

	march, err := svc.AddBudget(ctx, foodBudget())
	if err != nil {
		t.Fatal(err)
	}
	travel, err := svc.AddBudget(ctx, ledger.BudgetInput{
		UserID: "u2", CategoryID: "travel", Name: "Trips", Amount: 1200,
		Period: domain.PeriodYearly, StartDate: civil.Date{Year: 2024, Month: time.July, Day: 15},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		window domain.Window
		want   []ledger.BudgetStatus
	}{
		{
			name:   "all time",
			window: domain.Window{},
			want: []ledger.BudgetStatus{
				{Budget: march, Spent: 500, Remaining: -100, Progress: 100},
				{Budget: travel, Spent: 600, Remaining: 600, Progress: 50},
			},
		},
		{
			name:   "March 2024",
			window: domain.Window{Month: time.March, Year: 2024},
			want: []ledger.BudgetStatus{
				{Budget: march, Spent: 500, Remaining: -100, Progress: 100},
			},
		},
		{
			name:   "August 2024",
			window: domain.Window{Month: time.August, Year: 2024},
			want: []ledger.BudgetStatus{
				{Budget: travel, Spent: 600, Remaining: 600, Progress: 50},
			},
		},
		{
			name:   "2023",
			window: domain.Window{Year: 2023},
			want:   []ledger.BudgetStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Budgets(ctx, tt.window)
			if err != nil {
				t.Fatalf("Budgets() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Budgets() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_UpdateTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)

	orig, err := svc.Record(ctx, groceries(), "weekly")
	if err != nil {
		t.Fatal(err)
	}

	edit := groceries()
	edit.Amount = 650
	edit.UserID = "u2"
	edit.Date = "2024-03-08"
	got, err := svc.UpdateTransaction(ctx, orig.ID, edit, " split ")
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	want := orig
	want.Amount = 650
	want.UserID = "u2"
	want.Date = civil.Date{Year: 2024, Month: time.March, Day: 8}
	want.Notes = "split"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UpdateTransaction() mismatch (-want +got):\n%s", diff)
	}
	stored, _ := store.GetTransaction(ctx, orig.ID)
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name    string
		id      string
		mutate  func(*domain.AddTransaction)
		wantErr error
	}{
		{"missing id", "", func(*domain.AddTransaction) {}, ledger.ErrInvalidInput},
		{"unknown id", "nope", func(*domain.AddTransaction) {}, ledger.ErrNotFound},
		{"unknown user", orig.ID, func(a *domain.AddTransaction) { a.UserID = "u9" }, ledger.ErrNotFound},
		{"bad amount", orig.ID, func(a *domain.AddTransaction) { a.Amount = -5 }, ledger.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			add := groceries()
			tt.mutate(&add)
			if _, err := svc.UpdateTransaction(ctx, tt.id, add, ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.Transaction(ctx, "nope"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Transaction(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestService_RenameUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	tests := []struct {
		name    string
		id      string
		newName string
		wantErr error
	}{
		{"rename", "u2", "  Robert ", nil},
		{"same name different case", "u1", "ALICE", nil},
		{"taken by another", "u2", "alice", ledger.ErrInvalidInput},
		{"blank", "u1", " ", ledger.ErrInvalidInput},
		{"unknown", "u9", "Zed", ledger.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RenameUser(ctx, tt.id, tt.newName)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RenameUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	users, _ := svc.Users(ctx)
	want := []domain.User{{ID: "u1", Name: "ALICE"}, {ID: "u2", Name: "Robert"}}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Errorf("Users() mismatch (-want +got):\n%s", diff)
	}
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, nil)

	carol, err := svc.AddUser(ctx, "Carol")
	if err != nil {
		t.Fatal(err)
	}
	dave, err := svc.AddUser(ctx, "Dave")
	if err != nil {
		t.Fatal(err)
	}
	recordAll(t, svc, domain.AddTransaction{UserID: carol.ID, Description: "Snacks", Amount: 5, Date: "2024-03-01", CategoryID: "food-dining", Type: domain.TypeExpense})
	in := foodBudget()
	in.UserID = dave.ID
	if _, err := svc.AddBudget(ctx, in); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"has transactions", carol.ID, ledger.ErrInUse},
		{"has budgets", dave.ID, ledger.ErrInUse},
		{"unused", "u2", nil},
		{"already gone", "u2", ledger.ErrNotFound},
		{"no id", "", ledger.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.DeleteUser(ctx, tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("DeleteUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	users, _ := svc.Users(ctx)
	if len(users) != 3 {
		t.Errorf("Users() = %+v, want Alice, Carol and Dave", users)
	}
}
