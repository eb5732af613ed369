package bigquery

import "time"

// VendorCacheRow maps a raw vendor string to its normalized brand token. The
// full raw string is stored; lookups match on its leading characters.
type VendorCacheRow struct {
	RawVendor        string    `bigquery:"raw_vendor"`        // REQUIRED
	NormalizedVendor string    `bigquery:"normalized_vendor"` // REQUIRED
	CreatedTS        time.Time `bigquery:"created_ts"`        // REQUIRED
}
