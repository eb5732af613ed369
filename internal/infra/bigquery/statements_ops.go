package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertStatement inserts a single StatementRow.
func InsertStatement(ctx context.Context, row *StatementRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertStatement: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertStatementWithClient(ctx, client, row)
}

// InsertStatementWithClient inserts a single StatementRow using the provided
// BigQuery client.
func InsertStatementWithClient(ctx context.Context, client *bigquery.Client, row *StatementRow) error {
	inserter := client.DatasetInProject(projectID, datasetID).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// ListStatementsWithClient returns all statements, newest first.
func ListStatementsWithClient(ctx context.Context, client *bigquery.Client) ([]*StatementRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			statement_id,
			filename,
			file_size,
			gcs_uri,
			status,
			error_message,
			uploaded_ts,
			processed_ts
		FROM %s
		ORDER BY uploaded_ts DESC
	`, tableRef(statementsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStatements: query read: %w", err)
	}

	var rows []*StatementRow
	for {
		var r StatementRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListStatements: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// GetStatementWithClient returns one statement by ID, or nil when not found.
func GetStatementWithClient(ctx context.Context, client *bigquery.Client, statementID string) (*StatementRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			statement_id,
			filename,
			file_size,
			gcs_uri,
			status,
			error_message,
			uploaded_ts,
			processed_ts
		FROM %s
		WHERE statement_id = @statement_id
		LIMIT 1
	`, tableRef(statementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStatement: query read: %w", err)
	}

	var row StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatement: iter next: %w", err)
	}
	return &row, nil
}

// UpdateStatementStatusWithClient moves a statement to a new status. Terminal
// states (completed, failed) also stamp processed_ts; a failure message is
// stored when provided.
func UpdateStatementStatusWithClient(ctx context.Context, client *bigquery.Client, statementID, status, errorMessage string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    error_message = @error_message,
		    processed_ts = CASE
		        WHEN @status IN ('completed', 'failed') THEN CURRENT_TIMESTAMP()
		        ELSE processed_ts
		    END
		WHERE statement_id = @statement_id
	`, tableRef(statementsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "error_message", Value: bigquery.NullString{StringVal: errorMessage, Valid: errorMessage != ""}},
		{Name: "statement_id", Value: statementID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateStatementStatus: running query: %w", err)
	}
	jobStatus, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateStatementStatus: waiting for job: %w", err)
	}
	if err := jobStatus.Err(); err != nil {
		return fmt.Errorf("UpdateStatementStatus: job error: %w", err)
	}
	return nil
}
