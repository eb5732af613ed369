package worker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/jobs"
	"github.com/dvloznov/expense-ai/internal/pipeline"
)

type mockStatementRepo struct {
	statuses []string
	errors   []string
}

func (m *mockStatementRepo) InsertStatement(context.Context, *bigquery.StatementRow) error {
	return nil
}

func (m *mockStatementRepo) ListStatements(context.Context) ([]*bigquery.StatementRow, error) {
	return nil, nil
}

func (m *mockStatementRepo) GetStatement(context.Context, string) (*bigquery.StatementRow, error) {
	return nil, nil
}

func (m *mockStatementRepo) UpdateStatementStatus(_ context.Context, _ string, status, errorMessage string) error {
	m.statuses = append(m.statuses, status)
	m.errors = append(m.errors, errorMessage)
	return nil
}

type mockTransactionRepo struct {
	inserted []*bigquery.TransactionRow
}

func (m *mockTransactionRepo) InsertTransactions(_ context.Context, rows []*bigquery.TransactionRow) error {
	m.inserted = append(m.inserted, rows...)
	return nil
}

func (m *mockTransactionRepo) ListTransactionsByStatement(context.Context, string) ([]*bigquery.TransactionRow, error) {
	return nil, nil
}

func (m *mockTransactionRepo) ListTransactionsForMonth(context.Context, int, int) ([]*bigquery.TransactionRow, error) {
	return nil, nil
}

func (m *mockTransactionRepo) SummarizeExpensesByMonth(context.Context, int) ([]bigquery.MonthlyExpense, error) {
	return nil, nil
}

func (m *mockTransactionRepo) AssignCategory(context.Context, []string, string) error {
	return nil
}

type mockStorage struct {
	data []byte
	err  error
}

func (m *mockStorage) UploadBytes(_ context.Context, _, objectName string, _ []byte) (string, error) {
	return "gs://test-bucket/" + objectName, nil
}

func (m *mockStorage) FetchFromGCS(context.Context, string) ([]byte, error) {
	return m.data, m.err
}

type fixedLLM struct{}

func (fixedLLM) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "PRIMARY brand name") {
		return "freshco", nil
	}
	return `{"date": "Nov 20", "vendor_raw": "FRESHCO #9888 BRAMPTON ON", "amount": 23.87}`, nil
}

func newTestProcessor(stmts *mockStatementRepo, txs *mockTransactionRepo, storage *mockStorage) *StatementProcessor {
	pipe := pipeline.NewProcessor(fixedLLM{}, pipeline.NewMemoryVendorCache(), pipeline.Options{}, zerolog.Nop())
	p := NewStatementProcessor(stmts, txs, storage, pipe, zerolog.Nop())
	p.extractText = func(data []byte) (string, error) { return string(data), nil }
	return p
}

func TestHandle_CompletesStatement(t *testing.T) {
	stmts := &mockStatementRepo{}
	txs := &mockTransactionRepo{}
	storage := &mockStorage{data: []byte(
		"Statement Date: December 10, 2025\n" +
			"Nov 20 Nov 24 FRESHCO #9888 BRAMPTON ON 23.87\n",
	)}
	p := newTestProcessor(stmts, txs, storage)

	job := &jobs.ProcessStatementJob{JobID: "job-1", StatementID: "stmt-1", GCSURI: "gs://b/x.pdf"}
	if err := p.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(txs.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(txs.inserted))
	}
	row := txs.inserted[0]
	if row.StatementID != "stmt-1" {
		t.Errorf("StatementID = %q, want stmt-1", row.StatementID)
	}
	if row.TransactionDate != "2025-11-20" {
		t.Errorf("TransactionDate = %q, want 2025-11-20", row.TransactionDate)
	}
	if got, _ := row.Amount.Float64(); got != 23.87 {
		t.Errorf("Amount = %v, want 23.87", got)
	}
	if !row.VendorNormalized.Valid || row.VendorNormalized.StringVal != "freshco" {
		t.Errorf("VendorNormalized = %+v, want freshco", row.VendorNormalized)
	}

	wantStatuses := []string{bigquery.StatementStatusProcessing, bigquery.StatementStatusCompleted}
	if len(stmts.statuses) != 2 || stmts.statuses[0] != wantStatuses[0] || stmts.statuses[1] != wantStatuses[1] {
		t.Errorf("statuses = %v, want %v", stmts.statuses, wantStatuses)
	}
}

func TestHandle_EmptyStatementCompletes(t *testing.T) {
	stmts := &mockStatementRepo{}
	txs := &mockTransactionRepo{}
	storage := &mockStorage{data: []byte("no transaction lines here\n")}
	p := newTestProcessor(stmts, txs, storage)

	job := &jobs.ProcessStatementJob{JobID: "job-1", StatementID: "stmt-1", GCSURI: "gs://b/x.pdf"}
	if err := p.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle() error = %v (empty statement is not a failure)", err)
	}
	if len(txs.inserted) != 0 {
		t.Errorf("inserted %d transactions, want 0", len(txs.inserted))
	}
	if stmts.statuses[len(stmts.statuses)-1] != bigquery.StatementStatusCompleted {
		t.Errorf("final status = %v, want completed", stmts.statuses)
	}
}

func TestHandle_FetchFailureMarksFailed(t *testing.T) {
	stmts := &mockStatementRepo{}
	txs := &mockTransactionRepo{}
	storage := &mockStorage{err: fmt.Errorf("object not found")}
	p := newTestProcessor(stmts, txs, storage)

	job := &jobs.ProcessStatementJob{JobID: "job-1", StatementID: "stmt-1", GCSURI: "gs://b/x.pdf"}
	if err := p.Handle(context.Background(), job); err == nil {
		t.Fatal("Handle() error = nil, want error")
	}

	final := stmts.statuses[len(stmts.statuses)-1]
	if final != bigquery.StatementStatusFailed {
		t.Errorf("final status = %q, want failed", final)
	}
	if stmts.errors[len(stmts.errors)-1] == "" {
		t.Error("failed status has empty error message")
	}
}

func TestHandle_WrongJobType(t *testing.T) {
	p := newTestProcessor(&mockStatementRepo{}, &mockTransactionRepo{}, &mockStorage{})

	if err := p.Handle(context.Background(), badJob{}); err == nil {
		t.Error("Handle() with wrong job type: expected error")
	}
}

type badJob struct{}

func (badJob) GetID() string             { return "x" }
func (badJob) GetType() jobs.JobType     { return "other" }
func (badJob) GetStatus() jobs.JobStatus { return jobs.JobStatusPending }
