package record

import (
	"time"

	"github.com/resumatch/resumatch/pkg/kernel"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

type IndexingStep string

const (
	StepExtracting IndexingStep = "extracting"
	StepEmbedding  IndexingStep = "embedding"
	StepWriting    IndexingStep = "writing"
)

// IndexingJob tracks one asynchronous resume ingest from uploaded file to
// fully indexed embedding record.
type IndexingJob struct {
	ID       kernel.IndexJobID `db:"id" json:"id"`
	SeekerID kernel.SeekerID   `db:"seeker_id" json:"seeker_id"`
	ResumeID kernel.ResumeID   `db:"resume_id" json:"resume_id"`

	Status   JobStatus `db:"status" json:"status"`
	FilePath string    `db:"file_path" json:"file_path"`
	FileName string    `db:"file_name" json:"file_name"`

	AttemptCount int `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int `db:"max_attempts" json:"max_attempts"`

	ErrorMessage string       `db:"error_message" json:"error_message,omitempty"`
	CurrentStep  IndexingStep `db:"current_step" json:"current_step,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	FailedAt    *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	NextRetryAt *time.Time `db:"next_retry_at" json:"next_retry_at,omitempty"`
}

// CanRetry reports whether the job still has attempts left
func (j *IndexingJob) CanRetry() bool {
	return j.AttemptCount < j.MaxAttempts
}

// MarkProcessing moves the job into the processing state
func (j *IndexingJob) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.AttemptCount++
}

// MarkCompleted records a successful ingest
func (j *IndexingJob) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.ErrorMessage = ""
}

// MarkFailed records a failed attempt; nextRetry is nil once retries are
// exhausted.
func (j *IndexingJob) MarkFailed(errMsg string, nextRetry *time.Time) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FailedAt = &now
	j.ErrorMessage = errMsg
	j.NextRetryAt = nextRetry
}
