package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/expense-ai/internal/api/handlers"
	"github.com/dvloznov/expense-ai/internal/api/middleware"
	"github.com/dvloznov/expense-ai/internal/gcsuploader"
	infraBQ "github.com/dvloznov/expense-ai/internal/infra/bigquery"
	"github.com/dvloznov/expense-ai/internal/jobs/inmemory"
	"github.com/dvloznov/expense-ai/internal/llm"
	"github.com/dvloznov/expense-ai/internal/logger"
	"github.com/dvloznov/expense-ai/internal/pipeline"
	"github.com/dvloznov/expense-ai/internal/worker"
)

func main() {
	// Load .env if present; real environments set vars directly
	_ = godotenv.Load()

	// Parse command-line flags
	var (
		port        = flag.String("port", "8080", "HTTP server port")
		bucket      = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name for statement uploads (or set GCS_BUCKET env)")
		workerCount = flag.Int("workers", inmemory.DefaultWorkerCount, "Number of in-process job workers")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - statement uploads will fail")
	}

	ctx := context.Background()

	// Initialize BigQuery repository
	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	// Initialize LLM client from environment
	llmClient, err := llm.NewFromEnv(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LLM client")
	}

	// Build the statement processing pipeline
	opts := pipeline.Options{}
	if v := os.Getenv("PIPELINE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Concurrency = n
		}
	}
	if v := os.Getenv("PIPELINE_FALLBACK_YEAR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.FallbackYear = n
		}
	}
	pipe := pipeline.NewProcessor(llmClient, repo.VendorCache(), opts, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workerCount, jobStore)

	// Storage service for uploads and worker fetches
	storage := gcsuploader.NewGCSStorageService()

	// Statement processor consumes jobs in-process
	processor := worker.NewStatementProcessor(repo, repo, storage, pipe, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", *workerCount).Msg("Starting job workers")
		if err := jobQueue.Start(workerCtx, processor.Handle); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	// Initialize handlers
	statementsHandler := handlers.NewStatementsHandler(repo, repo, storage, jobQueue, *bucket, log)
	transactionsHandler := handlers.NewTransactionsHandler(repo, repo, log)
	categoriesHandler := handlers.NewCategoriesHandler(repo, log)
	dashboardHandler := handlers.NewDashboardHandler(repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Statements endpoints
	mux.HandleFunc("/api/statements/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			statementsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract statement ID from path
			statementID := strings.TrimPrefix(r.URL.Path, "/api/statements/")
			if statementID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Statement ID is required")
				return
			}
			statementsHandler.Get(w, r, statementID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/assign-category", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.AssignCategory(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Categories endpoints
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.List(w, r)
		case http.MethodPost:
			categoriesHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Dashboard endpoints
	mux.HandleFunc("/api/dashboard/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Summary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/dashboard/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Path is /api/dashboard/transactions/{year}/{month}
		rest := strings.TrimPrefix(r.URL.Path, "/api/dashboard/transactions/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 {
			middleware.WriteError(w, http.StatusBadRequest, "Expected /api/dashboard/transactions/{year}/{month}")
			return
		}
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid year")
			return
		}
		month, err := strconv.Atoi(parts[1])
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid month")
			return
		}
		dashboardHandler.TransactionsByMonth(w, r, year, month)
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.Get(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
