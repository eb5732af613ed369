// Package worker executes statement processing jobs: fetch the uploaded
// document, run the extraction pipeline, and persist the results.
package worker

import (
	"context"
	"fmt"
	"math/big"
	"time"

	bq "cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/extract"
	"github.com/dvloznov/expense-ai/internal/gcsuploader"
	"github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/jobs"
	"github.com/dvloznov/expense-ai/internal/pipeline"
)

// StatementProcessor handles ProcessStatementJob jobs.
type StatementProcessor struct {
	statements   bigquery.StatementRepository
	transactions bigquery.TransactionRepository
	storage      gcsuploader.StorageService
	pipeline     *pipeline.Processor
	log          zerolog.Logger

	// extractText is swapped in tests to avoid needing real PDF bytes.
	extractText func(data []byte) (string, error)
}

// NewStatementProcessor creates a StatementProcessor.
func NewStatementProcessor(
	statements bigquery.StatementRepository,
	transactions bigquery.TransactionRepository,
	storage gcsuploader.StorageService,
	pipe *pipeline.Processor,
	log zerolog.Logger,
) *StatementProcessor {
	return &StatementProcessor{
		statements:   statements,
		transactions: transactions,
		storage:      storage,
		pipeline:     pipe,
		log:          log,
		extractText:  extract.FromPDF,
	}
}

// Handle implements jobs.JobHandler. A returned error marks the statement
// failed and lets the queue retry.
func (p *StatementProcessor) Handle(ctx context.Context, job jobs.Job) error {
	stmtJob, ok := job.(*jobs.ProcessStatementJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}

	log := p.log.With().
		Str("job_id", stmtJob.JobID).
		Str("statement_id", stmtJob.StatementID).
		Logger()

	log.Info().Str("gcs_uri", stmtJob.GCSURI).Msg("Processing statement")

	if err := p.statements.UpdateStatementStatus(ctx, stmtJob.StatementID, bigquery.StatementStatusProcessing, ""); err != nil {
		return fmt.Errorf("mark statement processing: %w", err)
	}

	transactions, err := p.process(ctx, stmtJob)
	if err != nil {
		log.Error().Err(err).Msg("Statement processing failed")
		if updateErr := p.statements.UpdateStatementStatus(ctx, stmtJob.StatementID, bigquery.StatementStatusFailed, err.Error()); updateErr != nil {
			log.Error().Err(updateErr).Msg("Failed to mark statement failed")
		}
		return err
	}

	if err := p.statements.UpdateStatementStatus(ctx, stmtJob.StatementID, bigquery.StatementStatusCompleted, ""); err != nil {
		return fmt.Errorf("mark statement completed: %w", err)
	}

	log.Info().Int("transactions", len(transactions)).Msg("Statement processing completed")
	return nil
}

func (p *StatementProcessor) process(ctx context.Context, job *jobs.ProcessStatementJob) ([]*bigquery.TransactionRow, error) {
	data, err := p.storage.FetchFromGCS(ctx, job.GCSURI)
	if err != nil {
		return nil, fmt.Errorf("fetch statement document: %w", err)
	}

	text, err := p.extractText(data)
	if err != nil {
		return nil, fmt.Errorf("extract statement text: %w", err)
	}

	normalized, err := p.pipeline.ProcessStatementText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("process statement text: %w", err)
	}

	rows := toTransactionRows(job.StatementID, normalized)
	if err := p.transactions.InsertTransactions(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}
	return rows, nil
}

func toTransactionRows(statementID string, txs []pipeline.NormalizedTransaction) []*bigquery.TransactionRow {
	now := time.Now()
	rows := make([]*bigquery.TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &bigquery.TransactionRow{
			TransactionID:    uuid.NewString(),
			StatementID:      statementID,
			TransactionDate:  tx.Date,
			VendorRaw:        tx.VendorRaw,
			VendorNormalized: bq.NullString{StringVal: tx.VendorNormalized, Valid: tx.VendorNormalized != ""},
			Amount:           new(big.Rat).SetFloat64(tx.Amount),
			CreatedTS:        now,
		})
	}
	return rows
}
