package bigquery

import "time"

type CategoryRow struct {
	CategoryID string    `bigquery:"category_id"` // REQUIRED
	Name       string    `bigquery:"name"`        // REQUIRED
	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
}
