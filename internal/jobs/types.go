package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessStatement represents a statement processing job.
	JobTypeProcessStatement JobType = "process_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessStatementJob runs the extraction pipeline over one uploaded
// statement.
type ProcessStatementJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// StatementID is the ID of the statement row in BigQuery.
	StatementID string `json:"statement_id"`

	// GCSURI points at the uploaded document.
	GCSURI string `json:"gcs_uri"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ProcessStatementJob) GetID() string { return j.JobID }

func (j *ProcessStatementJob) GetType() JobType { return JobTypeProcessStatement }

func (j *ProcessStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction allows swapping the in-memory queue for Cloud Tasks or Pub/Sub
// without touching handlers.
type Publisher interface {
	// PublishProcessStatement publishes a statement processing job.
	PublishProcessStatement(ctx context.Context, job *ProcessStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler function is
	// called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job; a returned error means the job failed and
// should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore stores and retrieves job status so the API can answer job queries
// while processing runs in the background.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessStatementJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// StatementID filters jobs by statement ID.
	StatementID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
