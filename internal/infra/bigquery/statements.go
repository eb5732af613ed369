package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Statement processing states.
const (
	StatementStatusPending    = "pending"
	StatementStatusProcessing = "processing"
	StatementStatusCompleted  = "completed"
	StatementStatusFailed     = "failed"
)

type StatementRow struct {
	StatementID string `bigquery:"statement_id"` // REQUIRED
	Filename    string `bigquery:"filename"`     // REQUIRED
	FileSize    int64  `bigquery:"file_size"`    // REQUIRED
	GCSURI      string `bigquery:"gcs_uri"`      // REQUIRED

	Status       string              `bigquery:"status"`        // REQUIRED
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	UploadedTS  time.Time              `bigquery:"uploaded_ts"`  // REQUIRED
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"` // NULLABLE
}
