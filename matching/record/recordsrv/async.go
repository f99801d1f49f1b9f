package recordsrv

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resumatch/resumatch/internal/extract"
	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
	"github.com/resumatch/resumatch/pkg/logx"
)

const indexJobMaxAttempts = 3

// UploadResumeAsync queues an uploaded resume file for background
// extraction and indexing.
func (s *Service) UploadResumeAsync(ctx context.Context, req record.UploadResumeRequest) (*record.JobStatusResponse, error) {
	logx.Infof("Queueing resume for async indexing: SeekerID=%s, File=%s", req.SeekerID, req.FileName)

	// The profile check runs up front so an incomplete profile fails the
	// upload immediately instead of inside the worker.
	profile, err := s.profiles.GetSeekerProfile(ctx, req.SeekerID)
	if err != nil {
		return nil, record.ErrSourceNotFound().
			WithDetail("seeker_id", req.SeekerID.String())
	}
	if !profile.IsComplete() {
		return nil, record.ErrIncompleteProfile().
			WithDetail("seeker_id", req.SeekerID.String()).
			WithDetail("required_fields", "country, profession")
	}

	job := &record.IndexingJob{
		ID:          kernel.NewIndexJobID(uuid.NewString()),
		SeekerID:    req.SeekerID,
		ResumeID:    req.ResumeID,
		Status:      record.JobStatusPending,
		FilePath:    req.FilePath,
		FileName:    req.FileName,
		MaxAttempts: indexJobMaxAttempts,
		CreatedAt:   time.Now(),
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, record.ErrJobUpdateFailed(err).
			WithDetail("seeker_id", req.SeekerID.String()).
			WithDetail("file_name", req.FileName)
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		job.MarkFailed("failed to enqueue", nil)
		_ = s.jobRepo.Update(ctx, job)

		return nil, record.ErrQueueEnqueueFailed(err).
			WithDetail("job_id", job.ID.String())
	}

	logx.Infof("Indexing job queued: JobID=%s", job.ID)
	resp := record.ToJobStatusResponse(job)
	return &resp, nil
}

// ProcessIndexingJob is the worker entry point: read the file, extract its
// text and run the synchronous indexing path.
func (s *Service) ProcessIndexingJob(ctx context.Context, job *record.IndexingJob) error {
	logx.Infof("Processing indexing job: JobID=%s, Attempt=%d/%d", job.ID, job.AttemptCount+1, job.MaxAttempts)

	job.MarkProcessing()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return record.ErrJobUpdateFailed(err).WithDetail("job_id", job.ID.String())
	}

	job.CurrentStep = record.StepExtracting
	_ = s.jobRepo.Update(ctx, job)

	fileData, err := s.fileReader.ReadFile(ctx, job.FilePath)
	if err != nil {
		return s.handleJobError(ctx, job, "file_read_failed",
			record.ErrFileReadFailed(err).WithDetail("file_path", job.FilePath))
	}

	text, err := extract.Text(job.FileName, fileData)
	if err != nil {
		return s.handleJobError(ctx, job, "extract_failed",
			record.ErrExtractFailed(err).WithDetail("file_name", job.FileName))
	}

	job.CurrentStep = record.StepEmbedding
	_ = s.jobRepo.Update(ctx, job)

	// Re-uploading replaces an earlier embedding of the same resume.
	if existing, err := s.repo.GetBySourceID(ctx, record.NamespaceResumes, job.ResumeID.String()); err == nil && existing != nil {
		if delErr := s.delete(ctx, record.NamespaceResumes, job.ResumeID.String()); delErr != nil {
			return s.handleJobError(ctx, job, "replace_failed", delErr)
		}
	}

	job.CurrentStep = record.StepWriting
	_ = s.jobRepo.Update(ctx, job)

	_, err = s.IndexResume(ctx, record.IndexResumeRequest{
		SeekerID:  job.SeekerID,
		ResumeID:  job.ResumeID,
		Text:      text,
		SourceURL: job.FilePath,
	})
	if err != nil {
		return s.handleJobError(ctx, job, "index_failed", err)
	}

	job.MarkCompleted()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		// The record was indexed; a stale job row is not worth failing for.
		logx.Errorf("Failed to mark indexing job as completed: %v", err)
	}

	logx.Infof("Indexing job completed: JobID=%s, ResumeID=%s", job.ID, job.ResumeID)
	return nil
}

// handleJobError schedules a retry with exponential backoff, or marks the
// job permanently failed once its attempts are spent.
func (s *Service) handleJobError(ctx context.Context, job *record.IndexingJob, errorType string, err error) error {
	if job.CanRetry() {
		retryDelay := time.Duration(1<<uint(job.AttemptCount)) * time.Minute
		nextRetry := time.Now().Add(retryDelay)

		logx.Warnf("Indexing job failed, will retry: JobID=%s, Attempt=%d/%d, NextRetry=%v, Error=%v",
			job.ID, job.AttemptCount, job.MaxAttempts, nextRetry, err)

		if queueErr := s.queue.EnqueueDelayed(ctx, job.ID, retryDelay); queueErr != nil {
			logx.Errorf("Failed to enqueue indexing job for retry: %v", queueErr)
			job.MarkFailed(fmt.Sprintf("%s (retry enqueue failed): %v", errorType, err), nil)
			_ = s.jobRepo.Update(ctx, job)
			return record.ErrQueueEnqueueFailed(queueErr).WithDetail("job_id", job.ID.String())
		}

		job.Status = record.JobStatusPending
		job.ErrorMessage = fmt.Sprintf("%s (will retry): %v", errorType, err)
		job.NextRetryAt = &nextRetry
		if updateErr := s.jobRepo.Update(ctx, job); updateErr != nil {
			logx.Errorf("Failed to update indexing job for retry: %v", updateErr)
		}

		return record.ErrJobUpdateFailed(err).
			WithDetail("job_id", job.ID.String()).
			WithDetail("error_type", errorType).
			WithDetail("will_retry", true)
	}

	logx.Errorf("Indexing job permanently failed: JobID=%s, Error=%v, Attempts=%d/%d",
		job.ID, err, job.AttemptCount, job.MaxAttempts)

	job.MarkFailed(fmt.Sprintf("%s: %v", errorType, err), nil)
	_ = s.jobRepo.Update(ctx, job)

	return record.ErrJobMaxRetries().
		WithDetail("job_id", job.ID.String()).
		WithDetail("error_type", errorType).
		WithDetail("final_attempt", job.AttemptCount)
}

// GetJobStatus reports the state of one async ingest.
func (s *Service) GetJobStatus(ctx context.Context, jobID kernel.IndexJobID) (*record.JobStatusResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, record.ErrJobNotFound().WithDetail("job_id", jobID.String())
	}

	resp := record.ToJobStatusResponse(job)
	return &resp, nil
}
