package record

import (
	"context"
	"time"

	"github.com/resumatch/resumatch/pkg/kernel"
)

// Repository is the relational store for embedding records. It is the
// authoritative existence record; the vector index follows it.
type Repository interface {
	// Create inserts a new embedding record
	Create(ctx context.Context, rec *EmbeddingRecord) error

	// Update replaces content, vector and metadata for an existing record
	Update(ctx context.Context, rec *EmbeddingRecord) error

	// GetBySourceID retrieves the record for a resume id or job id
	GetBySourceID(ctx context.Context, ns Namespace, sourceID string) (*EmbeddingRecord, error)

	// ListByOwnerID retrieves all records owned by a seeker or company
	ListByOwnerID(ctx context.Context, ns Namespace, ownerID string) ([]*EmbeddingRecord, error)

	// SetActive flips the active flag
	SetActive(ctx context.Context, ns Namespace, sourceID string, active bool) error

	// AddAppliedJob atomically appends jobID to a resume record's applied
	// list; appending an already-present id is a no-op
	AddAppliedJob(ctx context.Context, resumeID string, jobID string) error

	// RemoveAppliedJob atomically removes jobID from the applied list
	RemoveAppliedJob(ctx context.Context, resumeID string, jobID string) error

	// Delete removes the record
	Delete(ctx context.Context, ns Namespace, sourceID string) error
}

// IndexRecord is a point fetched back from the vector index.
type IndexRecord struct {
	ID       string
	SourceID string
	OwnerID  string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// Hit is one similarity match from the vector index.
type Hit struct {
	ID       string
	SourceID string
	Content  string
	Score    float64
	Metadata Metadata
}

// Filter is the structured predicate applied alongside similarity search.
// Zero-valued fields add no constraint; active=true is always implied by
// the index adapter and cannot be disabled.
type Filter struct {
	Country    string
	Profession string
	WorkType   WorkType

	// SalaryMin/SalaryMax request a range; a candidate matches when its own
	// salary band overlaps the requested one.
	SalaryMin *int
	SalaryMax *int

	// ExcludeIDs are record ids that must not come back, regardless of
	// similarity.
	ExcludeIDs []string
}

// VectorIndex is the nearest-neighbor store. Records are keyed by the same
// id as the relational row.
type VectorIndex interface {
	// Upsert writes vector plus metadata for a record
	Upsert(ctx context.Context, ns Namespace, rec *EmbeddingRecord) error

	// Fetch reads one point back with its current metadata and vector
	Fetch(ctx context.Context, ns Namespace, id string) (*IndexRecord, error)

	// UpdateMetadata replaces the point's metadata, leaving the vector
	// unchanged. Callers must pass merged metadata, never a bare patch.
	UpdateMetadata(ctx context.Context, ns Namespace, id string, md Metadata) error

	// Delete removes the point
	Delete(ctx context.Context, ns Namespace, id string) error

	// Query returns up to topK hits ordered by descending similarity.
	// Zero hits is a valid result, not an error.
	Query(ctx context.Context, ns Namespace, vector []float32, filter Filter, topK int) ([]Hit, error)
}

// ProfileStore reads seeker profiles owned by the accounts subsystem.
type ProfileStore interface {
	GetSeekerProfile(ctx context.Context, seekerID kernel.SeekerID) (*SeekerProfile, error)
}

// Embedder turns normalized text into dense vectors.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// JobRepository persists indexing jobs for the async ingest path.
type JobRepository interface {
	Create(ctx context.Context, job *IndexingJob) error
	Update(ctx context.Context, job *IndexingJob) error
	GetByID(ctx context.Context, jobID kernel.IndexJobID) (*IndexingJob, error)
}

// JobQueue is the transport between the ingest API and the worker pool.
type JobQueue interface {
	// Enqueue adds a job to the ready queue
	Enqueue(ctx context.Context, jobID kernel.IndexJobID) error

	// Dequeue blocks up to timeout for the next ready job
	Dequeue(ctx context.Context, timeout time.Duration) (kernel.IndexJobID, error)

	// EnqueueDelayed schedules a retry for later
	EnqueueDelayed(ctx context.Context, jobID kernel.IndexJobID, delay time.Duration) error

	// MoveDelayedToReady promotes due delayed jobs to the ready queue
	MoveDelayedToReady(ctx context.Context) (int, error)

	// GetQueueSize returns the number of ready jobs
	GetQueueSize(ctx context.Context) (int64, error)
}
