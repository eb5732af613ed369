package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// LookupVendorWithClient returns the normalized token of any cached vendor
// whose raw string starts with prefix. The second return is false on a miss.
func LookupVendorWithClient(ctx context.Context, client *bigquery.Client, prefix string) (string, bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT normalized_vendor
		FROM %s
		WHERE STARTS_WITH(raw_vendor, @prefix)
		LIMIT 1
	`, tableRef(vendorCacheTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "prefix", Value: prefix},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", false, fmt.Errorf("LookupVendor: query read: %w", err)
	}

	var row struct {
		NormalizedVendor string `bigquery:"normalized_vendor"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("LookupVendor: iter next: %w", err)
	}
	return row.NormalizedVendor, true, nil
}

// UpsertVendorWithClient stores a normalized vendor, replacing any existing
// entry for the same raw string.
func UpsertVendorWithClient(ctx context.Context, client *bigquery.Client, rawVendor, normalized string) error {
	q := client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @raw_vendor AS raw_vendor, @normalized_vendor AS normalized_vendor) s
		ON t.raw_vendor = s.raw_vendor
		WHEN MATCHED THEN
			UPDATE SET normalized_vendor = s.normalized_vendor
		WHEN NOT MATCHED THEN
			INSERT (raw_vendor, normalized_vendor, created_ts)
			VALUES (s.raw_vendor, s.normalized_vendor, CURRENT_TIMESTAMP())
	`, tableRef(vendorCacheTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "raw_vendor", Value: rawVendor},
		{Name: "normalized_vendor", Value: normalized},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertVendor: running query: %w", err)
	}
	jobStatus, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertVendor: waiting for job: %w", err)
	}
	if err := jobStatus.Err(); err != nil {
		return fmt.Errorf("UpsertVendor: job error: %w", err)
	}
	return nil
}
