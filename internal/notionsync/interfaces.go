package notionsync

import (
	"context"

	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/jomei/notionapi"
)

// NotionService defines the interface for interacting with Notion API.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryDatabase queries a Notion database with the given filter.
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

	// ArchivePage moves a page to the Notion trash.
	ArchivePage(ctx context.Context, pageID string) error
}

// Source provides the ledger data to mirror. *ledger.Service satisfies it.
type Source interface {
	Transactions(ctx context.Context, filter ledger.TransactionFilter) ([]domain.Transaction, error)
	ReferenceData(ctx context.Context) ([]domain.ReferenceEntity, []domain.ReferenceEntity, error)
}

// Ensure the ledger service can be mirrored directly.
var _ Source = (*ledger.Service)(nil)
