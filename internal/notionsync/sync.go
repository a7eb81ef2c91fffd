// Package notionsync mirrors recorded transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/zerobalance/internal/domain"
	"github.com/dvloznov/zerobalance/internal/ledger"
	"github.com/dvloznov/zerobalance/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	// queryPageSize is the Notion maximum page size for database queries.
	queryPageSize = 100
)

// SyncResult counts what a sync did (or would do, in dry-run mode).
type SyncResult struct {
	Created  int
	Archived int
	Skipped  int
	Failed   int
}

// SyncTransactions mirrors the transactions dated between from and to
// (inclusive; zero dates leave that end open) into the Notion database.
// It:
// 1. Queries all existing Notion pages
// 2. Archives stale pages in the range (ids no longer in the ledger, or no id at all)
// 3. Archives pages whose transaction was edited since it was mirrored
// 4. Creates pages for transactions Notion does not have (or no longer has) a current copy of
// Individual page failures are logged and counted, not returned.
func SyncTransactions(ctx context.Context, src Source, notionClient NotionService, notionDBID string, from, to civil.Date, dryRun bool) (*SyncResult, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Str("start_date", dateString(from)).
		Str("end_date", dateString(to)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	filter := ledger.TransactionFilter{From: from, To: to}
	transactions, err := src.Transactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	users, cats, err := src.ReferenceData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	userNames := displayNames(users)
	categoryNames := displayNames(cats)

	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved transactions from ledger")

	ledgerByID := make(map[string]domain.Transaction, len(transactions))
	for _, tx := range transactions {
		ledgerByID[tx.ID] = tx
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	result := &SyncResult{}
	existingTransactionIDs := make(map[string]bool)

	for _, page := range notionPages {
		txID := extractTransactionID(page)
		tx, inLedger := ledgerByID[txID]
		edited := false
		if txID != "" && inLedger {
			if pageMatches(page, tx) {
				existingTransactionIDs[txID] = true
				continue
			}
			edited = true
		} else if !pageInRange(page, filter) {
			continue
		}

		pageLog := log.With().
			Str("transaction_id", txID).
			Str("page_id", string(page.ID)).
			Bool("edited", edited).
			Logger()
		if dryRun {
			pageLog.Info().Msg("[DRY RUN] Would archive stale Notion page")
			result.Archived++
			continue
		}
		if err := notionClient.ArchivePage(ctx, string(page.ID)); err != nil {
			pageLog.Warn().Err(err).Msg("Failed to archive stale Notion page")
			result.Failed++
			// Keep the outdated page rather than adding a second copy.
			if edited {
				existingTransactionIDs[txID] = true
			}
			continue
		}
		pageLog.Info().Msg("Archived stale Notion page")
		result.Archived++
	}

	// Process transactions in batches
	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		batch := transactions[i:end]
		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, tx := range batch {
			if existingTransactionIDs[tx.ID] {
				result.Skipped++
				continue
			}

			if dryRun {
				log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create new Notion page")
				result.Created++
				continue
			}

			props := TransactionToNotionProperties(tx, userNames[tx.UserID], categoryNames[tx.CategoryID])
			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				result.Failed++
				// Continue processing other transactions
				continue
			}
			log.Info().
				Str("transaction_id", tx.ID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			result.Created++
		}
	}

	log.Info().
		Int("archived", result.Archived).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("total", len(transactions)).
		Msg("Transaction sync completed")

	return result, nil
}

// pageInRange reports whether a stale page belongs to the synced range.
// Pages without a date are always considered stale.
func pageInRange(page notionapi.Page, filter ledger.TransactionFilter) bool {
	date, ok := extractDate(page)
	if !ok {
		return true
	}
	return filter.Match(domain.Transaction{Date: date})
}

func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: queryPageSize,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

func displayNames(refs []domain.ReferenceEntity) map[string]string {
	m := make(map[string]string, len(refs))
	for _, r := range refs {
		m[r.ID] = r.Name
	}
	return m
}

func dateString(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return d.String()
}
