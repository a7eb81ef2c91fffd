package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/google/go-cmp/cmp"
	"github.com/jomei/notionapi"
)

// fakeNotion serves pages in chunks of pageSize and records writes.
type fakeNotion struct {
	pages     []notionapi.Page
	pageSize  int
	createErr error

	queries  int
	created  []notionapi.Properties
	archived []string
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, props)
	return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queries++
	start := 0
	if req.StartCursor != "" {
		for i, p := range f.pages {
			if string(p.ID) == string(req.StartCursor) {
				start = i
			}
		}
	}
	end := start + f.pageSize
	if f.pageSize == 0 || end > len(f.pages) {
		end = len(f.pages)
	}

	resp := &notionapi.DatabaseQueryResponse{Results: f.pages[start:end]}
	if end < len(f.pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(f.pages[end].ID)
	}
	return resp, nil
}

func (f *fakeNotion) ArchivePage(ctx context.Context, pageID string) error {
	f.archived = append(f.archived, pageID)
	return nil
}

// fakeSource returns fixed ledger data.
type fakeSource struct {
	txs   []domain.Transaction
	users []domain.ReferenceEntity
	cats  []domain.ReferenceEntity
	err   error
}

func (f *fakeSource) Transactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Transaction
	for _, tx := range f.txs {
		if filter.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeSource) ReferenceData(ctx context.Context) ([]domain.ReferenceEntity, []domain.ReferenceEntity, error) {
	return f.users, f.cats, nil
}

func march(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: day}
}

// notionPage builds a page as the Notion API returns it: pointer
// properties with plain text filled in.
func notionPage(id, txID string, date *civil.Date) notionapi.Page {
	props := notionapi.Properties{}
	if txID != "" {
		props[propTransactionID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: txID}},
		}
	}
	if date != nil {
		props[propDate] = &notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(*date)},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func newSource() *fakeSource {
	return &fakeSource{
		txs: []domain.Transaction{
			{ID: "tx-1", UserID: "u1", Date: march(5), Description: "Groceries", Amount: 42, Type: domain.TypeExpense, CategoryID: "food-dining"},
			{ID: "tx-2", UserID: "u2", Date: march(6), Description: "Internet", Amount: 30, Type: domain.TypeExpense, CategoryID: "utilities"},
		},
		users: []domain.ReferenceEntity{{ID: "u1", Name: "Alice"}, {ID: "u2", Name: "Bob"}},
		cats:  []domain.ReferenceEntity{{ID: "food-dining", Name: "Food & Dining"}, {ID: "utilities", Name: "Utilities"}},
	}
}

func newNotion() *fakeNotion {
	d5, d7, feb := march(5), march(7), civil.Date{Year: 2024, Month: time.February, Day: 1}
	return &fakeNotion{
		pageSize: 2,
		pages: []notionapi.Page{
			notionPage("page-a", "tx-1", &d5),
			notionPage("page-b", "gone", &d7),
			notionPage("page-c", "", nil),
			notionPage("page-d", "old", &feb),
		},
	}
}

func TestSyncTransactions(t *testing.T) {
	notion := newNotion()

	result, err := SyncTransactions(context.Background(), newSource(), notion, "db", march(1), march(31), false)
	if err != nil {
		t.Fatalf("SyncTransactions() error: %v", err)
	}

	want := &SyncResult{Created: 1, Archived: 2, Skipped: 1}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if notion.queries != 2 {
		t.Errorf("queries = %d, want 2 (paginated)", notion.queries)
	}
	if diff := cmp.Diff([]string{"page-b", "page-c"}, notion.archived); diff != "" {
		t.Errorf("archived mismatch (-want +got):\n%s", diff)
	}

	if len(notion.created) != 1 {
		t.Fatalf("created %d pages, want 1", len(notion.created))
	}
	props := notion.created[0]
	if got := props[propTransactionID].(notionapi.RichTextProperty).RichText[0].Text.Content; got != "tx-2" {
		t.Errorf("Transaction ID = %q, want tx-2", got)
	}
	if got := props[propPaidBy].(notionapi.SelectProperty).Select.Name; got != "Bob" {
		t.Errorf("Paid By = %q, want Bob", got)
	}
	if got := props[propCategory].(notionapi.SelectProperty).Select.Name; got != "Utilities" {
		t.Errorf("Category = %q, want Utilities", got)
	}
}

func TestSyncTransactions_RefreshesEditedTransaction(t *testing.T) {
	d5 := march(5)
	edited := notionPage("page-a", "tx-1", &d5)
	edited.Properties[propAmount] = &notionapi.NumberProperty{Number: 40}
	current := notionPage("page-b", "tx-2", nil)
	current.Properties[propAmount] = &notionapi.NumberProperty{Number: 30}
	current.Properties[propDescription] = &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Internet"}}}
	notion := &fakeNotion{pages: []notionapi.Page{edited, current}}

	result, err := SyncTransactions(context.Background(), newSource(), notion, "db", march(1), march(31), false)
	if err != nil {
		t.Fatalf("SyncTransactions() error: %v", err)
	}

	if diff := cmp.Diff(&SyncResult{Created: 1, Archived: 1, Skipped: 1}, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"page-a"}, notion.archived); diff != "" {
		t.Errorf("archived mismatch (-want +got):\n%s", diff)
	}
	if len(notion.created) != 1 {
		t.Fatalf("created %d pages, want 1", len(notion.created))
	}
	if got := notion.created[0][propAmount].(notionapi.NumberProperty).Number; got != 42 {
		t.Errorf("recreated Amount = %v, want 42", got)
	}
}

func TestPageMatches(t *testing.T) {
	tx := domain.Transaction{ID: "tx-1", Date: march(5), Description: "Groceries", Amount: 42, Type: domain.TypeExpense}
	d5, d6 := march(5), march(6)

	tests := []struct {
		name  string
		props notionapi.Properties
		want  bool
	}{
		{"only the id", notionapi.Properties{}, true},
		{"same date", notionPage("p", "tx-1", &d5).Properties, true},
		{"moved date", notionPage("p", "tx-1", &d6).Properties, false},
		{"new amount", notionapi.Properties{propAmount: &notionapi.NumberProperty{Number: 41}}, false},
		{"new description", notionapi.Properties{propDescription: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Groc"}, {PlainText: "eries!"}}}}, false},
		{"split title", notionapi.Properties{propDescription: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: "Groc"}, {PlainText: "eries"}}}}, true},
		{"new type", notionapi.Properties{propType: &notionapi.SelectProperty{Select: notionapi.Option{Name: "income"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageMatches(notionapi.Page{Properties: tt.props}, tx); got != tt.want {
				t.Errorf("pageMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSyncTransactions_DryRun(t *testing.T) {
	notion := newNotion()

	result, err := SyncTransactions(context.Background(), newSource(), notion, "db", march(1), march(31), true)
	if err != nil {
		t.Fatalf("SyncTransactions() error: %v", err)
	}

	if diff := cmp.Diff(&SyncResult{Created: 1, Archived: 2, Skipped: 1}, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if len(notion.created) != 0 || len(notion.archived) != 0 {
		t.Errorf("dry run wrote to Notion: created=%d archived=%d", len(notion.created), len(notion.archived))
	}
}

func TestSyncTransactions_CreateFailureIsCounted(t *testing.T) {
	notion := &fakeNotion{createErr: errors.New("rate limited")}

	result, err := SyncTransactions(context.Background(), newSource(), notion, "db", civil.Date{}, civil.Date{}, false)
	if err != nil {
		t.Fatalf("SyncTransactions() error: %v", err)
	}
	if result.Failed != 2 || result.Created != 0 {
		t.Errorf("result = %+v, want 2 failed", result)
	}
}

func TestSyncTransactions_SourceError(t *testing.T) {
	src := newSource()
	src.err = errors.New("bigquery unavailable")

	if _, err := SyncTransactions(context.Background(), src, &fakeNotion{}, "db", civil.Date{}, civil.Date{}, false); err == nil {
		t.Fatal("expected error")
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	tx := domain.Transaction{
		ID:          "tx-9",
		UserID:      "u1",
		Date:        march(9),
		Description: "Salary",
		Amount:      3000,
		Type:        domain.TypeIncome,
		CategoryID:  "income",
	}

	props := TransactionToNotionProperties(tx, "", "")

	if got := props[propPaidBy].(notionapi.SelectProperty).Select.Name; got != "u1" {
		t.Errorf("Paid By fallback = %q, want u1", got)
	}
	if got := props[propType].(notionapi.SelectProperty).Select.Name; got != "income" {
		t.Errorf("Type = %q", got)
	}
	if got := props[propAmount].(notionapi.NumberProperty).Number; got != 3000 {
		t.Errorf("Amount = %v", got)
	}
	start := time.Time(*props[propDate].(notionapi.DateProperty).Date.Start)
	if civil.DateOf(start) != march(9) {
		t.Errorf("Date = %v, want 2024-03-09", start)
	}
	if _, ok := props[propNotes]; ok {
		t.Error("Notes should be omitted when empty")
	}
	if _, ok := props[propRecordedAt]; ok {
		t.Error("Recorded At should be omitted for a zero timestamp")
	}
}
