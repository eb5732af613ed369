package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	infraBQ "github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/logger"
	"github.com/dvloznov/expense-ai/internal/notionsync"
)

func main() {
	_ = godotenv.Load()

	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	now := time.Now()
	year := flag.Int("year", now.Year(), "Year to sync")
	month := flag.Int("month", int(now.Month()), "Month to sync (1-12)")
	notionToken := flag.String("notion-token", os.Getenv("NOTION_API_KEY"), "Notion API token (or set NOTION_API_KEY env)")
	notionDBID := flag.String("notion-db-id", os.Getenv("NOTION_DATABASE_ID"), "Notion database ID (or set NOTION_DATABASE_ID env)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_API_KEY is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DATABASE_ID is required")
	}
	if *month < 1 || *month > 12 {
		log.Fatal().Int("month", *month).Msg("Error: month must be between 1 and 12")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize BigQuery repository
	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Sync the month's transactions
	if err := notionsync.SyncMonth(ctx, repo, repo, notionClient, *notionDBID, *year, *month, *dryRun, log); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
