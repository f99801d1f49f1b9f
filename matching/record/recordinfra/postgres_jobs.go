package recordinfra

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// PostgresJobRepository persists async indexing jobs.
type PostgresJobRepository struct {
	db *sqlx.DB
}

func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, job *record.IndexingJob) error {
	query := `
		INSERT INTO indexing_jobs (
			id, seeker_id, resume_id, status, file_path, file_name,
			attempt_count, max_attempts, error_message, current_step,
			created_at, started_at, completed_at, failed_at, next_retry_at
		) VALUES (
			:id, :seeker_id, :resume_id, :status, :file_path, :file_name,
			:attempt_count, :max_attempts, :error_message, :current_step,
			:created_at, :started_at, :completed_at, :failed_at, :next_retry_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return record.ErrStoreFailed(err).
			WithDetail("job_id", job.ID.String()).
			WithDetail("operation", "insert_job")
	}
	return nil
}

func (r *PostgresJobRepository) Update(ctx context.Context, job *record.IndexingJob) error {
	query := `
		UPDATE indexing_jobs SET
			status = :status,
			attempt_count = :attempt_count,
			error_message = :error_message,
			current_step = :current_step,
			started_at = :started_at,
			completed_at = :completed_at,
			failed_at = :failed_at,
			next_retry_at = :next_retry_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, job)
	if err != nil {
		return record.ErrStoreFailed(err).WithDetail("job_id", job.ID.String())
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrJobNotFound().WithDetail("job_id", job.ID.String())
	}
	return nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, jobID kernel.IndexJobID) (*record.IndexingJob, error) {
	query := `
		SELECT id, seeker_id, resume_id, status, file_path, file_name,
			attempt_count, max_attempts,
			COALESCE(error_message, '') AS error_message,
			COALESCE(current_step, '') AS current_step,
			created_at, started_at, completed_at, failed_at, next_retry_at
		FROM indexing_jobs WHERE id = $1`

	var job record.IndexingJob
	if err := r.db.GetContext(ctx, &job, query, jobID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, record.ErrJobNotFound().WithDetail("job_id", jobID.String())
		}
		return nil, record.ErrStoreFailed(err).WithDetail("job_id", jobID.String())
	}
	return &job, nil
}
