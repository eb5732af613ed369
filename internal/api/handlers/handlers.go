package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/api/middleware"
	"github.com/dvloznov/expense-ai/internal/gcsuploader"
	"github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/jobs"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// statementResponse is the JSON shape for one statement.
type statementResponse struct {
	StatementID  string                 `json:"statement_id"`
	Filename     string                 `json:"filename"`
	FileSize     int64                  `json:"file_size"`
	Status       string                 `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	UploadedTS   time.Time              `json:"uploaded_ts"`
	ProcessedTS  *time.Time             `json:"processed_ts,omitempty"`
	Transactions []*transactionResponse `json:"transactions,omitempty"`
}

// transactionResponse is the JSON shape for one transaction.
type transactionResponse struct {
	TransactionID    string  `json:"transaction_id"`
	StatementID      string  `json:"statement_id"`
	TransactionDate  string  `json:"transaction_date"`
	VendorRaw        string  `json:"vendor_raw"`
	VendorNormalized string  `json:"vendor_normalized,omitempty"`
	Amount           float64 `json:"amount"`
	CategoryID       string  `json:"category_id,omitempty"`
}

func toStatementResponse(row *bigquery.StatementRow) *statementResponse {
	resp := &statementResponse{
		StatementID: row.StatementID,
		Filename:    row.Filename,
		FileSize:    row.FileSize,
		Status:      row.Status,
		UploadedTS:  row.UploadedTS,
	}
	if row.ErrorMessage.Valid {
		resp.ErrorMessage = row.ErrorMessage.StringVal
	}
	if row.ProcessedTS.Valid {
		t := row.ProcessedTS.Timestamp
		resp.ProcessedTS = &t
	}
	return resp
}

func toTransactionResponse(row *bigquery.TransactionRow) *transactionResponse {
	resp := &transactionResponse{
		TransactionID:   row.TransactionID,
		StatementID:     row.StatementID,
		TransactionDate: row.TransactionDate,
		VendorRaw:       row.VendorRaw,
	}
	if row.VendorNormalized.Valid {
		resp.VendorNormalized = row.VendorNormalized.StringVal
	}
	if row.Amount != nil {
		resp.Amount, _ = row.Amount.Float64()
	}
	if row.CategoryID.Valid {
		resp.CategoryID = row.CategoryID.StringVal
	}
	return resp
}

func toTransactionResponses(rows []*bigquery.TransactionRow) []*transactionResponse {
	out := make([]*transactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionResponse(row))
	}
	return out
}

// StatementsHandler handles statement upload and query endpoints.
type StatementsHandler struct {
	statements   bigquery.StatementRepository
	transactions bigquery.TransactionRepository
	storage      gcsuploader.StorageService
	publisher    jobs.Publisher
	bucket       string
	log          zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(
	statements bigquery.StatementRepository,
	transactions bigquery.TransactionRepository,
	storage gcsuploader.StorageService,
	publisher jobs.Publisher,
	bucket string,
	log zerolog.Logger,
) *StatementsHandler {
	return &StatementsHandler{
		statements:   statements,
		transactions: transactions,
		storage:      storage,
		publisher:    publisher,
		bucket:       bucket,
		log:          log,
	}
}

// Upload handles POST /api/statements/upload. The document goes to GCS, a
// statement row is created, and processing runs asynchronously; the response
// returns immediately with the statement ID.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		middleware.WriteError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	statementID := uuid.NewString()
	objectName := fmt.Sprintf("statements/%s/%s-%s", time.Now().Format("2006/01/02"), statementID, filename)

	gcsURI, err := h.storage.UploadBytes(ctx, h.bucket, objectName, data)
	if err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("Failed to upload statement to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	row := &bigquery.StatementRow{
		StatementID: statementID,
		Filename:    filename,
		FileSize:    int64(len(data)),
		GCSURI:      gcsURI,
		Status:      bigquery.StatementStatusPending,
		UploadedTS:  time.Now(),
	}
	if err := h.statements.InsertStatement(ctx, row); err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to insert statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save statement")
		return
	}

	job := &jobs.ProcessStatementJob{
		StatementID: statementID,
		GCSURI:      gcsURI,
	}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to enqueue processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing")
		return
	}

	h.log.Info().
		Str("statement_id", statementID).
		Str("job_id", job.JobID).
		Str("gcs_uri", gcsURI).
		Msg("Statement uploaded")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message":      "Statement uploaded successfully",
		"statement_id": statementID,
		"job_id":       job.JobID,
		"status":       bigquery.StatementStatusPending,
	})
}

// List handles GET /api/statements.
func (h *StatementsHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.statements.ListStatements(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	out := make([]*statementResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStatementResponse(row))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /api/statements/{id}, returning the statement with its
// transactions.
func (h *StatementsHandler) Get(w http.ResponseWriter, r *http.Request, statementID string) {
	ctx := r.Context()

	row, err := h.statements.GetStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to get statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get statement")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "Statement not found")
		return
	}

	txRows, err := h.transactions.ListTransactionsByStatement(ctx, statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	resp := toStatementResponse(row)
	resp.Transactions = toTransactionResponses(txRows)
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// TransactionsHandler handles transaction query and category assignment
// endpoints.
type TransactionsHandler struct {
	transactions bigquery.TransactionRepository
	categories   bigquery.CategoryRepository
	log          zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(transactions bigquery.TransactionRepository, categories bigquery.CategoryRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		transactions: transactions,
		categories:   categories,
		log:          log,
	}
}

// List handles GET /api/transactions?statement_id=...
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	statementID := r.URL.Query().Get("statement_id")
	if statementID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "statement_id is required")
		return
	}

	rows, err := h.transactions.ListTransactionsByStatement(r.Context(), statementID)
	if err != nil {
		h.log.Error().Err(err).Str("statement_id", statementID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactionResponses(rows))
}

// AssignCategory handles POST /api/transactions/assign-category. The category
// is created on first use.
func (h *TransactionsHandler) AssignCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []string `json:"transaction_ids"`
		CategoryName   string   `json:"category_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 || strings.TrimSpace(req.CategoryName) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_ids and category_name are required")
		return
	}

	ctx := r.Context()
	categoryID, err := h.categories.GetOrCreateCategory(ctx, strings.TrimSpace(req.CategoryName))
	if err != nil {
		h.log.Error().Err(err).Str("category", req.CategoryName).Msg("Failed to resolve category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to resolve category")
		return
	}

	if err := h.transactions.AssignCategory(ctx, req.TransactionIDs, categoryID); err != nil {
		h.log.Error().Err(err).Str("category_id", categoryID).Msg("Failed to assign category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to assign category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category_id": categoryID,
		"updated":     len(req.TransactionIDs),
	})
}

// CategoriesHandler handles the category taxonomy endpoints.
type CategoriesHandler struct {
	categories bigquery.CategoryRepository
	log        zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(categories bigquery.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{categories: categories, log: log}
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": rows,
		"count":      len(rows),
	})
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	categoryID, err := h.categories.GetOrCreateCategory(r.Context(), name)
	if err != nil {
		h.log.Error().Err(err).Str("category", name).Msg("Failed to create category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{
		"category_id": categoryID,
		"name":        name,
	})
}

// DashboardHandler serves spend aggregations.
type DashboardHandler struct {
	transactions bigquery.TransactionRepository
	log          zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(transactions bigquery.TransactionRepository, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{transactions: transactions, log: log}
}

// Summary handles GET /api/dashboard/summary?year=YYYY. Year defaults to the
// current year.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		parsed, err := strconv.Atoi(yearStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		year = parsed
	}

	months, err := h.transactions.SummarizeExpensesByMonth(r.Context(), year)
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Msg("Failed to summarize expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarize expenses")
		return
	}

	var total float64
	var highestMonth *int64
	var highestExpense float64
	for _, m := range months {
		total += m.Expense
		if highestMonth == nil || m.Expense > highestExpense {
			month := m.Month
			highestMonth = &month
			highestExpense = m.Expense
		}
	}

	if months == nil {
		months = []bigquery.MonthlyExpense{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_expense":         total,
		"highest_expense_month": highestMonth,
		"monthly_expenses":      months,
	})
}

// TransactionsByMonth handles GET /api/dashboard/transactions/{year}/{month}.
func (h *DashboardHandler) TransactionsByMonth(w http.ResponseWriter, r *http.Request, year, month int) {
	if month < 1 || month > 12 {
		middleware.WriteError(w, http.StatusBadRequest, "Month must be between 1 and 12")
		return
	}

	rows, err := h.transactions.ListTransactionsForMonth(r.Context(), year, month)
	if err != nil {
		h.log.Error().Err(err).Int("year", year).Int("month", month).Msg("Failed to list month transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if len(rows) == 0 {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("No transactions found for %d-%02d", year, month))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactionResponses(rows))
}

// JobsHandler handles job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		StatementID: query.Get("statement_id"),
		Status:      jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
