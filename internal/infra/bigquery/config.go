// Package bigquery holds the row types and operations for the expenseai
// dataset. Every operation comes in two forms: a standalone function that
// opens its own client, and a WithClient variant for callers that hold a
// shared connection (the repositories in interfaces.go).
package bigquery

import "os"

const (
	statementsTable   = "statements"
	transactionsTable = "transactions"
	categoriesTable   = "categories"
	vendorCacheTable  = "vendor_cache"

	dateFormat = "2006-01-02"
)

var (
	projectID = envOr("BIGQUERY_PROJECT", "")
	datasetID = envOr("BIGQUERY_DATASET", "expenseai")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func tableRef(table string) string {
	return "`" + projectID + "." + datasetID + "." + table + "`"
}
