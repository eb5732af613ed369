package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	StatementID   string `bigquery:"statement_id"`   // REQUIRED

	// The pipeline passes unresolvable dates through verbatim, so this is a
	// STRING in the schema, not a DATE. Resolved values are always ISO
	// YYYY-MM-DD.
	TransactionDate string `bigquery:"transaction_date"` // REQUIRED

	VendorRaw        string              `bigquery:"vendor_raw"`        // REQUIRED
	VendorNormalized bigquery.NullString `bigquery:"vendor_normalized"` // NULLABLE

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	CategoryID bigquery.NullString `bigquery:"category_id"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
