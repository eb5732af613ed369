package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertTransactions inserts a batch of TransactionRow.
func InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertTransactions: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertTransactionsWithClient(ctx, client, rows)
}

// InsertTransactionsWithClient inserts a batch of TransactionRow using the
// provided BigQuery client.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	table := client.DatasetInProject(projectID, datasetID).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

const transactionColumns = `
	transaction_id,
	statement_id,
	transaction_date,
	vendor_raw,
	vendor_normalized,
	amount,
	category_id,
	created_ts`

// ListTransactionsByStatementWithClient returns all transactions of one
// statement, in insertion order (document order within the statement).
func ListTransactionsByStatementWithClient(ctx context.Context, client *bigquery.Client, statementID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE statement_id = @statement_id
		ORDER BY created_ts, transaction_id
	`, transactionColumns, tableRef(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "statement_id", Value: statementID},
	}

	return readTransactionRows(ctx, q, "ListTransactionsByStatement")
}

// ListTransactionsForMonthWithClient returns transactions whose resolved date
// falls in the given month, ordered by date. Rows with unresolved (non-ISO)
// dates never match the SAFE.PARSE_DATE filter and are excluded, which
// mirrors how the dashboard treats undateable rows.
func ListTransactionsForMonthWithClient(ctx context.Context, client *bigquery.Client, year, month int) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE EXTRACT(YEAR FROM SAFE.PARSE_DATE('%%Y-%%m-%%d', transaction_date)) = @year
		  AND EXTRACT(MONTH FROM SAFE.PARSE_DATE('%%Y-%%m-%%d', transaction_date)) = @month
		ORDER BY transaction_date, created_ts
	`, transactionColumns, tableRef(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "year", Value: int64(year)},
		{Name: "month", Value: int64(month)},
	}

	return readTransactionRows(ctx, q, "ListTransactionsForMonth")
}

// MonthlyExpense is one month's aggregated spend for the dashboard.
type MonthlyExpense struct {
	Month   int64   `bigquery:"month"`
	Expense float64 `bigquery:"expense"`
}

// SummarizeExpensesByMonthWithClient aggregates spend per calendar month for
// one year.
func SummarizeExpensesByMonthWithClient(ctx context.Context, client *bigquery.Client, year int) ([]MonthlyExpense, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			EXTRACT(MONTH FROM SAFE.PARSE_DATE('%%Y-%%m-%%d', transaction_date)) AS month,
			SUM(CAST(amount AS FLOAT64)) AS expense
		FROM %s
		WHERE EXTRACT(YEAR FROM SAFE.PARSE_DATE('%%Y-%%m-%%d', transaction_date)) = @year
		GROUP BY month
		ORDER BY month
	`, tableRef(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "year", Value: int64(year)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SummarizeExpensesByMonth: query read: %w", err)
	}

	var rows []MonthlyExpense
	for {
		var r MonthlyExpense
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SummarizeExpensesByMonth: iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// AssignCategoryWithClient sets the category on the given transactions.
func AssignCategoryWithClient(ctx context.Context, client *bigquery.Client, transactionIDs []string, categoryID string) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET category_id = @category_id
		WHERE transaction_id IN UNNEST(@transaction_ids)
	`, tableRef(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category_id", Value: categoryID},
		{Name: "transaction_ids", Value: transactionIDs},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("AssignCategory: running query: %w", err)
	}
	jobStatus, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("AssignCategory: waiting for job: %w", err)
	}
	if err := jobStatus.Err(); err != nil {
		return fmt.Errorf("AssignCategory: job error: %w", err)
	}
	return nil
}

func readTransactionRows(ctx context.Context, q *bigquery.Query, op string) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
