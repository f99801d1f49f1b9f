package record

import (
	"time"

	"github.com/resumatch/resumatch/pkg/kernel"
)

// ============================================================================
// Request DTOs
// ============================================================================

// IndexResumeRequest - Index already-extracted resume text
type IndexResumeRequest struct {
	SeekerID  kernel.SeekerID `json:"seeker_id" validate:"required"`
	ResumeID  kernel.ResumeID `json:"resume_id" validate:"required"`
	Text      string          `json:"text" validate:"required"`
	SourceURL string          `json:"source_url,omitempty"`
}

// UploadResumeRequest - Async ingest of an uploaded resume file
type UploadResumeRequest struct {
	SeekerID kernel.SeekerID `json:"seeker_id" validate:"required"`
	ResumeID kernel.ResumeID `json:"resume_id" validate:"required"`
	FilePath string          `json:"file_path" validate:"required"`
	FileName string          `json:"file_name" validate:"required"`
}

// IndexJobRequest - Index a job posting
type IndexJobRequest struct {
	CompanyID   kernel.CompanyID `json:"company_id" validate:"required"`
	JobID       kernel.JobID     `json:"job_id" validate:"required"`
	Title       string           `json:"title" validate:"required"`
	CompanyName string           `json:"company_name,omitempty"`
	Description string           `json:"description" validate:"required"`
	Country     string           `json:"country,omitempty"`
	WorkType    WorkType         `json:"work_type,omitempty"`
	SalaryMin   int              `json:"salary_min,omitempty"`
	SalaryMax   int              `json:"salary_max,omitempty"`
	SourceURL   string           `json:"source_url,omitempty"`
}

// SetActiveRequest - Flip the active flag (ban/unban, close/reopen)
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// AppliedJobRequest - Append or remove one applied job id
type AppliedJobRequest struct {
	JobID kernel.JobID `json:"job_id" validate:"required"`
}

// PropagateProfileRequest - Push changed profile fields to every resume
// embedding the seeker owns
type PropagateProfileRequest struct {
	SeekerID   kernel.SeekerID `json:"seeker_id" validate:"required"`
	Country    *string         `json:"country,omitempty"`
	Profession *string         `json:"profession,omitempty"`
}

// ============================================================================
// Response DTOs
// ============================================================================

// RecordResponse - Embedding record without the raw vector
type RecordResponse struct {
	ID        kernel.RecordID `json:"id"`
	Namespace Namespace       `json:"namespace"`
	OwnerID   string          `json:"owner_id"`
	SourceID  string          `json:"source_id"`
	Content   string          `json:"content"`
	Metadata  Metadata        `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ToRecordResponse(rec *EmbeddingRecord) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		Namespace: rec.Namespace,
		OwnerID:   rec.OwnerID,
		SourceID:  rec.SourceID,
		Content:   rec.Content,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// JobStatusResponse - Status of an async ingest job
type JobStatusResponse struct {
	JobID        kernel.IndexJobID `json:"job_id"`
	ResumeID     kernel.ResumeID   `json:"resume_id"`
	Status       JobStatus         `json:"status"`
	CurrentStep  IndexingStep      `json:"current_step,omitempty"`
	AttemptCount int               `json:"attempt_count"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	NextRetryAt  *time.Time        `json:"next_retry_at,omitempty"`
}

func ToJobStatusResponse(job *IndexingJob) JobStatusResponse {
	return JobStatusResponse{
		JobID:        job.ID,
		ResumeID:     job.ResumeID,
		Status:       job.Status,
		CurrentStep:  job.CurrentStep,
		AttemptCount: job.AttemptCount,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
		NextRetryAt:  job.NextRetryAt,
	}
}

// PropagationResult - Outcome of a batch metadata propagation
type PropagationResult struct {
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped,omitempty"` // record ids whose index update failed
}
