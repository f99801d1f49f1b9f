package recordsrv

import (
	"context"
	"time"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/fsx"
	"github.com/resumatch/resumatch/pkg/kernel"
	"github.com/resumatch/resumatch/pkg/logx"
	"github.com/resumatch/resumatch/pkg/textnorm"
)

// PropagationPolicy bounds the load batch metadata propagation puts on the
// vector index.
type PropagationPolicy struct {
	ChunkSize int
	Delay     time.Duration
}

// DefaultPropagationPolicy is used when the container does not override it.
var DefaultPropagationPolicy = PropagationPolicy{
	ChunkSize: 10,
	Delay:     200 * time.Millisecond,
}

type Service struct {
	repo       record.Repository
	index      record.VectorIndex
	profiles   record.ProfileStore
	embedder   record.Embedder
	jobRepo    record.JobRepository
	queue      record.JobQueue
	fileReader fsx.FileReader
	policy     PropagationPolicy
}

// NewService creates the dual-store record service
func NewService(
	repo record.Repository,
	index record.VectorIndex,
	profiles record.ProfileStore,
	embedder record.Embedder,
	jobRepo record.JobRepository,
	queue record.JobQueue,
	fileReader fsx.FileReader,
	policy PropagationPolicy,
) *Service {
	if policy.ChunkSize <= 0 {
		policy = DefaultPropagationPolicy
	}
	return &Service{
		repo:       repo,
		index:      index,
		profiles:   profiles,
		embedder:   embedder,
		jobRepo:    jobRepo,
		queue:      queue,
		fileReader: fileReader,
		policy:     policy,
	}
}

// ============================================================================
// Create
// ============================================================================

// IndexResume normalizes, embeds and stores resume text. The relational row
// is written first; if the index write then fails the row stays in place and
// ReindexResume repairs it.
func (s *Service) IndexResume(ctx context.Context, req record.IndexResumeRequest) (*record.RecordResponse, error) {
	logx.Infof("Indexing resume %s for seeker %s", req.ResumeID, req.SeekerID)

	profile, err := s.profiles.GetSeekerProfile(ctx, req.SeekerID)
	if err != nil {
		return nil, record.ErrSourceNotFound().
			WithDetail("seeker_id", req.SeekerID.String())
	}

	content := textnorm.Normalize(req.Text)
	if content == "" {
		return nil, record.ErrInvalidRecordData().WithDetail("reason", "empty text")
	}

	vector, err := s.embedder.Generate(ctx, content)
	if err != nil {
		return nil, record.ErrProviderFailed(err).
			WithDetail("resume_id", req.ResumeID.String())
	}

	rec, err := record.NewResumeRecord(req.SeekerID, req.ResumeID, content, vector, profile, req.SourceURL)
	if err != nil {
		return nil, err
	}

	if err := s.writeBoth(ctx, rec); err != nil {
		return nil, err
	}

	resp := record.ToRecordResponse(rec)
	return &resp, nil
}

// IndexJob normalizes, embeds and stores a job posting.
func (s *Service) IndexJob(ctx context.Context, req record.IndexJobRequest) (*record.RecordResponse, error) {
	logx.Infof("Indexing job %s for company %s", req.JobID, req.CompanyID)

	content := textnorm.Normalize(req.Title + "\n\n" + req.Description)
	if content == "" {
		return nil, record.ErrInvalidRecordData().WithDetail("reason", "empty text")
	}

	vector, err := s.embedder.Generate(ctx, content)
	if err != nil {
		return nil, record.ErrProviderFailed(err).
			WithDetail("job_id", req.JobID.String())
	}

	rec, err := record.NewJobRecord(req.CompanyID, req.JobID, content, vector, record.JobAttributes{
		Title:       req.Title,
		CompanyName: req.CompanyName,
		Country:     req.Country,
		WorkType:    req.WorkType,
		SalaryMin:   req.SalaryMin,
		SalaryMax:   req.SalaryMax,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.writeBoth(ctx, rec); err != nil {
		return nil, err
	}

	resp := record.ToRecordResponse(rec)
	return &resp, nil
}

// writeBoth runs the create protocol: relational first, then the index.
// There is no rollback of the relational write; the caller retries through
// the reindex path instead.
func (s *Service) writeBoth(ctx context.Context, rec *record.EmbeddingRecord) error {
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, rec.Namespace, rec); err != nil {
		logx.Errorf("Index write failed for record %s (source %s), relational row kept for reindex: %v",
			rec.ID, rec.SourceID, err)
		return record.ErrIndexWriteFailed(err).
			WithDetail("record_id", rec.ID.String()).
			WithDetail("source_id", rec.SourceID)
	}
	return nil
}

// ============================================================================
// Reindex (repair)
// ============================================================================

// ReindexResume re-upserts the relational record into the vector index,
// keyed by resume id. Safe to call repeatedly.
func (s *Service) ReindexResume(ctx context.Context, resumeID kernel.ResumeID) (*record.RecordResponse, error) {
	return s.reindex(ctx, record.NamespaceResumes, resumeID.String())
}

// ReindexJob is the job-side repair path.
func (s *Service) ReindexJob(ctx context.Context, jobID kernel.JobID) (*record.RecordResponse, error) {
	return s.reindex(ctx, record.NamespaceJobs, jobID.String())
}

func (s *Service) reindex(ctx context.Context, ns record.Namespace, sourceID string) (*record.RecordResponse, error) {
	rec, err := s.repo.GetBySourceID(ctx, ns, sourceID)
	if err != nil {
		return nil, err
	}

	if len(rec.Vector) == 0 {
		vector, err := s.embedder.Generate(ctx, rec.Content)
		if err != nil {
			return nil, record.ErrProviderFailed(err).WithDetail("source_id", sourceID)
		}
		rec.Vector = vector
		if err := s.repo.Update(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := s.index.Upsert(ctx, ns, rec); err != nil {
		return nil, record.ErrIndexWriteFailed(err).WithDetail("source_id", sourceID)
	}

	logx.Infof("Reindexed %s record for source %s", ns, sourceID)
	resp := record.ToRecordResponse(rec)
	return &resp, nil
}

// ============================================================================
// Read
// ============================================================================

func (s *Service) GetResumeRecord(ctx context.Context, resumeID kernel.ResumeID) (*record.RecordResponse, error) {
	return s.get(ctx, record.NamespaceResumes, resumeID.String())
}

func (s *Service) GetJobRecord(ctx context.Context, jobID kernel.JobID) (*record.RecordResponse, error) {
	return s.get(ctx, record.NamespaceJobs, jobID.String())
}

func (s *Service) get(ctx context.Context, ns record.Namespace, sourceID string) (*record.RecordResponse, error) {
	rec, err := s.repo.GetBySourceID(ctx, ns, sourceID)
	if err != nil {
		return nil, err
	}
	resp := record.ToRecordResponse(rec)
	return &resp, nil
}

// ============================================================================
// Delete
// ============================================================================

// DeleteResume removes the record from both stores, index first so no
// vector entry can outlive its relational parent.
func (s *Service) DeleteResume(ctx context.Context, resumeID kernel.ResumeID) error {
	return s.delete(ctx, record.NamespaceResumes, resumeID.String())
}

// DeleteJob is the job-side delete.
func (s *Service) DeleteJob(ctx context.Context, jobID kernel.JobID) error {
	return s.delete(ctx, record.NamespaceJobs, jobID.String())
}

func (s *Service) delete(ctx context.Context, ns record.Namespace, sourceID string) error {
	rec, err := s.repo.GetBySourceID(ctx, ns, sourceID)
	if err != nil {
		return err
	}

	if err := s.index.Delete(ctx, ns, rec.ID.String()); err != nil {
		return record.ErrIndexWriteFailed(err).
			WithDetail("record_id", rec.ID.String()).
			WithDetail("source_id", sourceID)
	}

	if err := s.repo.Delete(ctx, ns, sourceID); err != nil {
		return err
	}

	logx.Infof("Deleted %s record for source %s", ns, sourceID)
	return nil
}

// ============================================================================
// Metadata updates
// ============================================================================

// SetResumeActive flips the active flag on a resume record (ban/unban).
// The relational update is authoritative; an index failure is logged and
// left for the assembler to compensate.
func (s *Service) SetResumeActive(ctx context.Context, resumeID kernel.ResumeID, active bool) error {
	return s.setActive(ctx, record.NamespaceResumes, resumeID.String(), active)
}

// SetJobActive flips the active flag on a job record (admin closure).
func (s *Service) SetJobActive(ctx context.Context, jobID kernel.JobID, active bool) error {
	return s.setActive(ctx, record.NamespaceJobs, jobID.String(), active)
}

func (s *Service) setActive(ctx context.Context, ns record.Namespace, sourceID string, active bool) error {
	rec, err := s.repo.GetBySourceID(ctx, ns, sourceID)
	if err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, ns, sourceID, active); err != nil {
		return err
	}

	s.patchIndexMetadata(ctx, ns, rec.ID.String(), record.MetadataPatch{Active: &active})
	return nil
}

// AddAppliedJob records an application on the resume record so matching
// stops offering that job.
func (s *Service) AddAppliedJob(ctx context.Context, resumeID kernel.ResumeID, jobID kernel.JobID) error {
	rec, err := s.repo.GetBySourceID(ctx, record.NamespaceResumes, resumeID.String())
	if err != nil {
		return err
	}

	if err := s.repo.AddAppliedJob(ctx, resumeID.String(), jobID.String()); err != nil {
		return err
	}

	rec.AddAppliedJob(jobID.String())
	applied := rec.Metadata.AppliedJobIDs
	s.patchIndexMetadata(ctx, record.NamespaceResumes, rec.ID.String(), record.MetadataPatch{AppliedJobIDs: &applied})
	return nil
}

// RemoveAppliedJob undoes AddAppliedJob after an application is withdrawn.
func (s *Service) RemoveAppliedJob(ctx context.Context, resumeID kernel.ResumeID, jobID kernel.JobID) error {
	rec, err := s.repo.GetBySourceID(ctx, record.NamespaceResumes, resumeID.String())
	if err != nil {
		return err
	}

	if err := s.repo.RemoveAppliedJob(ctx, resumeID.String(), jobID.String()); err != nil {
		return err
	}

	rec.RemoveAppliedJob(jobID.String())
	applied := rec.Metadata.AppliedJobIDs
	s.patchIndexMetadata(ctx, record.NamespaceResumes, rec.ID.String(), record.MetadataPatch{AppliedJobIDs: &applied})
	return nil
}

// patchIndexMetadata is the fetch-then-merge primitive for index metadata.
// It reads the point's current metadata, merges the patch and writes the
// merged result back, so concurrent writers lose at most the fields this
// patch names. Failures are logged, never fatal; relational truth wins at
// assembly time.
func (s *Service) patchIndexMetadata(ctx context.Context, ns record.Namespace, id string, patch record.MetadataPatch) {
	current, err := s.index.Fetch(ctx, ns, id)
	if err != nil {
		logx.Warnf("Index metadata fetch failed for %s record %s, skipping patch: %v", ns, id, err)
		return
	}

	merged := current.Metadata.Merge(patch)
	if err := s.index.UpdateMetadata(ctx, ns, id, merged); err != nil {
		logx.Warnf("Index metadata update failed for %s record %s: %v", ns, id, err)
	}
}

// ============================================================================
// Batch propagation
// ============================================================================

// PropagateSeekerProfile pushes changed country/profession values to every
// resume embedding the seeker owns. All relational rows are updated first,
// then the index is patched in fixed-size chunks with a delay between
// chunks. A failed index patch is skipped and reported, never aborts the
// rest of the batch.
func (s *Service) PropagateSeekerProfile(ctx context.Context, req record.PropagateProfileRequest) (*record.PropagationResult, error) {
	if req.Country == nil && req.Profession == nil {
		return nil, record.ErrInvalidRecordData().WithDetail("reason", "no fields to propagate")
	}

	recs, err := s.repo.ListByOwnerID(ctx, record.NamespaceResumes, req.SeekerID.String())
	if err != nil {
		return nil, err
	}

	patch := record.MetadataPatch{Country: req.Country, Profession: req.Profession}

	for _, rec := range recs {
		rec.Metadata = rec.Metadata.Merge(patch)
		rec.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, rec); err != nil {
			return nil, err
		}
	}

	result := &record.PropagationResult{Total: len(recs)}
	for i, rec := range recs {
		if i > 0 && i%s.policy.ChunkSize == 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.policy.Delay):
			}
		}

		current, err := s.index.Fetch(ctx, record.NamespaceResumes, rec.ID.String())
		if err != nil {
			logx.Warnf("Profile propagation fetch failed for record %s, skipping: %v", rec.ID, err)
			result.Skipped = append(result.Skipped, rec.ID.String())
			continue
		}
		merged := current.Metadata.Merge(patch)
		if err := s.index.UpdateMetadata(ctx, record.NamespaceResumes, rec.ID.String(), merged); err != nil {
			logx.Warnf("Profile propagation update failed for record %s, skipping: %v", rec.ID, err)
			result.Skipped = append(result.Skipped, rec.ID.String())
			continue
		}
		result.Updated++
	}

	logx.Infof("Propagated profile for seeker %s to %d/%d resume records",
		req.SeekerID, result.Updated, result.Total)
	return result, nil
}
