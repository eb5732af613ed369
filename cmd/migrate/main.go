package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/joho/godotenv"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/expense-ai/internal/logger"
)

// tableDDL maps table names to their CREATE TABLE statements. %s is replaced
// with the fully qualified `project.dataset.table` reference.
var tableDDL = map[string]string{
	"statements": `CREATE TABLE IF NOT EXISTS %s (
  statement_id STRING NOT NULL,
  filename STRING NOT NULL,
  file_size INT64,
  gcs_uri STRING NOT NULL,
  status STRING NOT NULL,
  error_message STRING,
  uploaded_ts TIMESTAMP NOT NULL,
  processed_ts TIMESTAMP
)`,
	"transactions": `CREATE TABLE IF NOT EXISTS %s (
  transaction_id STRING NOT NULL,
  statement_id STRING NOT NULL,
  transaction_date STRING,
  vendor_raw STRING,
  vendor_normalized STRING,
  amount NUMERIC,
  category_id STRING,
  created_ts TIMESTAMP NOT NULL
)`,
	"categories": `CREATE TABLE IF NOT EXISTS %s (
  category_id STRING NOT NULL,
  name STRING NOT NULL,
  created_ts TIMESTAMP NOT NULL
)`,
	"vendor_cache": `CREATE TABLE IF NOT EXISTS %s (
  raw_vendor STRING NOT NULL,
  normalized_vendor STRING NOT NULL,
  created_ts TIMESTAMP NOT NULL
)`,
}

// migrationOrder keeps output deterministic.
var migrationOrder = []string{"statements", "transactions", "categories", "vendor_cache"}

func renderDDL(projectID, datasetID, table string) string {
	ref := fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, table)
	return fmt.Sprintf(tableDDL[table], ref)
}

func main() {
	_ = godotenv.Load()

	var (
		projectID = flag.String("project", os.Getenv("BIGQUERY_PROJECT"), "GCP project ID (or set BIGQUERY_PROJECT env)")
		datasetID = flag.String("dataset", envOr("BIGQUERY_DATASET", "expenseai"), "BigQuery dataset ID")
		location  = flag.String("location", "US", "Dataset location, used only when creating the dataset")
	)
	flag.Parse()

	log := logger.New()

	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag or BIGQUERY_PROJECT env is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	// Ensure the dataset exists
	dataset := client.Dataset(*datasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: *location}); err != nil {
		if !isAlreadyExists(err) {
			log.Fatal().Err(err).Msg("Failed to create dataset")
		}
		log.Info().Str("dataset", *datasetID).Msg("Dataset already exists")
	} else {
		log.Info().Str("dataset", *datasetID).Msg("Created dataset")
	}

	// Create tables
	for _, table := range migrationOrder {
		ddl := renderDDL(*projectID, *datasetID, table)

		q := client.Query(ddl)
		job, err := q.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("Failed to run DDL")
		}
		status, err := job.Wait(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("Failed waiting for DDL job")
		}
		if err := status.Err(); err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("DDL job failed")
		}

		log.Info().Str("table", table).Msg("Table ready")
	}

	log.Info().Msg("Migration completed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// isAlreadyExists reports whether err is the BigQuery duplicate-resource error.
func isAlreadyExists(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 409
	}
	return strings.Contains(err.Error(), "Already Exists")
}
