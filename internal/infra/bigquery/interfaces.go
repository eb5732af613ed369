package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// StatementRepository covers statement lifecycle operations used by the API
// handlers and the worker.
type StatementRepository interface {
	InsertStatement(ctx context.Context, row *StatementRow) error
	ListStatements(ctx context.Context) ([]*StatementRow, error)
	GetStatement(ctx context.Context, statementID string) (*StatementRow, error)
	UpdateStatementStatus(ctx context.Context, statementID, status, errorMessage string) error
}

// TransactionRepository covers transaction persistence and dashboard reads.
type TransactionRepository interface {
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
	ListTransactionsByStatement(ctx context.Context, statementID string) ([]*TransactionRow, error)
	ListTransactionsForMonth(ctx context.Context, year, month int) ([]*TransactionRow, error)
	SummarizeExpensesByMonth(ctx context.Context, year int) ([]MonthlyExpense, error)
	AssignCategory(ctx context.Context, transactionIDs []string, categoryID string) error
}

// CategoryRepository covers the category taxonomy.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]CategoryRow, error)
	GetOrCreateCategory(ctx context.Context, name string) (string, error)
}

// Repository is the concrete implementation of all repository interfaces over
// a single shared BigQuery client.
type Repository struct {
	client *bigquery.Client
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client}, nil
}

// Close closes the shared BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) InsertStatement(ctx context.Context, row *StatementRow) error {
	return InsertStatementWithClient(ctx, r.client, row)
}

func (r *Repository) ListStatements(ctx context.Context) ([]*StatementRow, error) {
	return ListStatementsWithClient(ctx, r.client)
}

func (r *Repository) GetStatement(ctx context.Context, statementID string) (*StatementRow, error) {
	return GetStatementWithClient(ctx, r.client, statementID)
}

func (r *Repository) UpdateStatementStatus(ctx context.Context, statementID, status, errorMessage string) error {
	return UpdateStatementStatusWithClient(ctx, r.client, statementID, status, errorMessage)
}

func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, rows)
}

func (r *Repository) ListTransactionsByStatement(ctx context.Context, statementID string) ([]*TransactionRow, error) {
	return ListTransactionsByStatementWithClient(ctx, r.client, statementID)
}

func (r *Repository) ListTransactionsForMonth(ctx context.Context, year, month int) ([]*TransactionRow, error) {
	return ListTransactionsForMonthWithClient(ctx, r.client, year, month)
}

func (r *Repository) SummarizeExpensesByMonth(ctx context.Context, year int) ([]MonthlyExpense, error) {
	return SummarizeExpensesByMonthWithClient(ctx, r.client, year)
}

func (r *Repository) AssignCategory(ctx context.Context, transactionIDs []string, categoryID string) error {
	return AssignCategoryWithClient(ctx, r.client, transactionIDs, categoryID)
}

func (r *Repository) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	return ListCategoriesWithClient(ctx, r.client)
}

func (r *Repository) GetOrCreateCategory(ctx context.Context, name string) (string, error) {
	return GetOrCreateCategoryWithClient(ctx, r.client, name)
}

// VendorCache adapts the repository to the pipeline's cache interface
// (Lookup by prefix, Upsert full raw string).
type VendorCache struct {
	client *bigquery.Client
}

// VendorCache returns a pipeline-compatible view over the shared client.
func (r *Repository) VendorCache() *VendorCache {
	return &VendorCache{client: r.client}
}

func (c *VendorCache) Lookup(ctx context.Context, prefix string) (string, bool, error) {
	return LookupVendorWithClient(ctx, c.client, prefix)
}

func (c *VendorCache) Upsert(ctx context.Context, rawVendor, normalized string) error {
	return UpsertVendorWithClient(ctx, c.client, rawVendor, normalized)
}
