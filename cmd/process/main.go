package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/expense-ai/internal/extract"
	infraBQ "github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/llm"
	"github.com/dvloznov/expense-ai/internal/logger"
	"github.com/dvloznov/expense-ai/internal/pipeline"
)

// Processes a single statement file locally and prints the normalized
// transactions as JSON. Useful for trying out prompts and models without
// touching GCS or the job queue.
func main() {
	_ = godotenv.Load()

	var (
		filePath     = flag.String("file", "", "Path to a statement PDF or text file (required)")
		concurrency  = flag.Int("concurrency", 0, "LLM call concurrency (0 = default)")
		fallbackYear = flag.Int("fallback-year", 0, "Year to assume for dates without one when no statement date is found")
		useBigQuery  = flag.Bool("bigquery-cache", false, "Use the BigQuery vendor cache instead of an in-memory one")
	)
	flag.Parse()

	log := logger.New()

	if *filePath == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read input file")
	}

	var text string
	if strings.HasSuffix(strings.ToLower(*filePath), ".pdf") {
		text, err = extract.FromPDF(data)
	} else {
		text, err = extract.FromText(data)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to extract text")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	llmClient, err := llm.NewFromEnv(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM client")
	}

	var cache pipeline.VendorCache = pipeline.NewMemoryVendorCache()
	if *useBigQuery {
		repo, err := infraBQ.NewRepository(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		cache = repo.VendorCache()
	}

	opts := pipeline.Options{
		Concurrency:  *concurrency,
		FallbackYear: *fallbackYear,
	}
	processor := pipeline.NewProcessor(llmClient, cache, opts, log)

	transactions, err := processor.ProcessStatementText(ctx, text)
	if err != nil {
		log.Fatal().Err(err).Msg("Statement processing failed")
	}

	log.Info().Int("transaction_count", len(transactions)).Msg("Statement processed")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(transactions); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode transactions")
	}
}
