package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

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

	workerCount := flag.Int("workers", inmemory.DefaultWorkerCount, "Number of job workers")
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workerCount, jobStore)

	processor := worker.NewStatementProcessor(repo, repo, gcsuploader.NewGCSStorageService(), pipe, log)

	log.Info().Int("workers", *workerCount).Msg("Starting worker service")

	// Start consuming jobs
	if err := jobQueue.Start(ctx, processor.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
