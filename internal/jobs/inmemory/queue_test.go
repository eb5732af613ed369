package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/expense-ai/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ProcessStatementJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached status %q (last: %+v)", jobID, want, job)
	return nil
}

func TestQueue_PublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	var mu sync.Mutex
	var processed []string
	handler := func(_ context.Context, job jobs.Job) error {
		mu.Lock()
		processed = append(processed, job.GetID())
		mu.Unlock()
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessStatementJob{StatementID: "stmt-1", GCSURI: "gs://bucket/stmt-1.pdf"}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}
	if job.JobID == "" {
		t.Fatal("expected job ID to be generated")
	}

	final := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Errorf("completed job missing timestamps: %+v", final)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 1 || processed[0] != job.JobID {
		t.Errorf("processed = %v, want [%s]", processed, job.JobID)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	handler := func(_ context.Context, _ jobs.Job) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return fmt.Errorf("boom")
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessStatementJob{StatementID: "stmt-1", GCSURI: "gs://b/x.pdf", MaxRetries: 1}
	if err := q.PublishProcessStatement(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessStatement() error = %v", err)
	}

	final := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if final.Error == "" {
		t.Error("failed job has empty Error")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("handler ran %d times, want 2 (initial + 1 retry)", attempts)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := q.PublishProcessStatement(context.Background(), &jobs.ProcessStatementJob{StatementID: "stmt-1"})
	if err == nil {
		t.Error("PublishProcessStatement() after Close: expected error, got nil")
	}
}

func TestStore_ListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job := &jobs.ProcessStatementJob{
			JobID:       fmt.Sprintf("job-%d", i),
			StatementID: fmt.Sprintf("stmt-%d", i%2),
			Status:      jobs.JobStatusPending,
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Millisecond),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	byStatement, err := store.ListJobs(ctx, jobs.JobFilter{StatementID: "stmt-0"})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byStatement) != 2 {
		t.Errorf("ListJobs(stmt-0) returned %d jobs, want 2", len(byStatement))
	}

	limited, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListJobs(limit=1) returned %d jobs, want 1", len(limited))
	}
	if limited[0].JobID != "job-2" {
		t.Errorf("ListJobs() first = %s, want newest job-2", limited[0].JobID)
	}
}
