package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/infra/bigquery"
)

// SyncMonth pushes one month's transactions to a Notion database. Pages are
// keyed by Transaction ID: existing pages are skipped, so re-running the sync
// is idempotent. With dryRun set, no pages are created.
func SyncMonth(
	ctx context.Context,
	transactions bigquery.TransactionRepository,
	categories bigquery.CategoryRepository,
	notionClient NotionService,
	notionDBID string,
	year, month int,
	dryRun bool,
	log zerolog.Logger,
) error {
	log.Info().
		Int("year", year).
		Int("month", month).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	rows, err := transactions.ListTransactionsForMonth(ctx, year, month)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	log.Info().Int("transaction_count", len(rows)).Msg("Retrieved transactions from BigQuery")

	categoryNames, err := loadCategoryNames(ctx, categories)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	existing, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("query Notion pages: %w", err)
	}

	existingIDs := make(map[string]bool, len(existing))
	for _, page := range existing {
		if txID := extractTransactionID(page); txID != "" {
			existingIDs[txID] = true
		}
	}

	var created, skipped int
	for _, tx := range rows {
		if existingIDs[tx.TransactionID] {
			skipped++
			continue
		}

		categoryName := ""
		if tx.CategoryID.Valid {
			categoryName = categoryNames[tx.CategoryID.StringVal]
		}
		props := TransactionToNotionProperties(tx, categoryName)

		if dryRun {
			log.Info().Str("transaction_id", tx.TransactionID).Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.TransactionID).Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Msg("Transaction sync to Notion completed")
	return nil
}

func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
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

func loadCategoryNames(ctx context.Context, categories bigquery.CategoryRepository) (map[string]string, error) {
	rows, err := categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.CategoryID] = row.Name
	}
	return names, nil
}
