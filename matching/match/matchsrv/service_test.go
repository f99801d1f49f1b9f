package matchsrv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/resumatch/resumatch/internal/ai/reranker"
	"github.com/resumatch/resumatch/matching/match"
	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/errx"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRepo struct {
	records map[string]*record.EmbeddingRecord // keyed by ns/sourceID
	getErr  map[string]error                   // per-sourceID lookup failures
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: make(map[string]*record.EmbeddingRecord),
		getErr:  make(map[string]error),
	}
}

func (f *fakeRepo) key(ns record.Namespace, sourceID string) string {
	return string(ns) + "/" + sourceID
}

func (f *fakeRepo) put(rec *record.EmbeddingRecord) {
	f.records[f.key(rec.Namespace, rec.SourceID)] = rec
}

func (f *fakeRepo) Create(ctx context.Context, rec *record.EmbeddingRecord) error {
	f.put(rec)
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, rec *record.EmbeddingRecord) error {
	f.put(rec)
	return nil
}

func (f *fakeRepo) GetBySourceID(ctx context.Context, ns record.Namespace, sourceID string) (*record.EmbeddingRecord, error) {
	if err, ok := f.getErr[sourceID]; ok {
		return nil, err
	}
	rec, ok := f.records[f.key(ns, sourceID)]
	if !ok {
		return nil, record.ErrRecordNotFound().WithDetail("source_id", sourceID)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) ListByOwnerID(ctx context.Context, ns record.Namespace, ownerID string) ([]*record.EmbeddingRecord, error) {
	return nil, nil
}

func (f *fakeRepo) SetActive(ctx context.Context, ns record.Namespace, sourceID string, active bool) error {
	return nil
}

func (f *fakeRepo) AddAppliedJob(ctx context.Context, resumeID, jobID string) error    { return nil }
func (f *fakeRepo) RemoveAppliedJob(ctx context.Context, resumeID, jobID string) error { return nil }
func (f *fakeRepo) Delete(ctx context.Context, ns record.Namespace, sourceID string) error {
	return nil
}

type fakeIndex struct {
	hits     []record.Hit
	queryErr error

	lastFilter record.Filter
	lastTopK   int
	lastNS     record.Namespace
}

func (f *fakeIndex) Upsert(ctx context.Context, ns record.Namespace, rec *record.EmbeddingRecord) error {
	return nil
}

func (f *fakeIndex) Fetch(ctx context.Context, ns record.Namespace, id string) (*record.IndexRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIndex) UpdateMetadata(ctx context.Context, ns record.Namespace, id string, md record.Metadata) error {
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, ns record.Namespace, id string) error { return nil }

func (f *fakeIndex) Query(ctx context.Context, ns record.Namespace, vector []float32, filter record.Filter, topK int) ([]record.Hit, error) {
	f.lastNS = ns
	f.lastFilter = filter
	f.lastTopK = topK
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	// The real index honors the exclusion filter; the fake does too so
	// tests exercise both filter construction and assembly.
	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []record.Hit
	for _, h := range f.hits {
		if !excluded[h.SourceID] {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// fakeReranker scores by the order map, or echoes a flat score when empty.
type fakeReranker struct {
	scores map[string]int
	err    error

	gotQuery      string
	gotCandidates []reranker.CandidateInput
}

func (f *fakeReranker) Rank(ctx context.Context, queryText string, candidates []reranker.CandidateInput) ([]reranker.RankedMatch, error) {
	f.gotQuery = queryText
	f.gotCandidates = candidates
	if f.err != nil {
		return nil, f.err
	}
	out := make([]reranker.RankedMatch, 0, len(candidates))
	for _, c := range candidates {
		score, ok := f.scores[c.SourceID]
		if !ok {
			score = 50
		}
		out = append(out, reranker.RankedMatch{
			SourceID:    c.SourceID,
			MatchScore:  score,
			Explanation: "test verdict",
			Strengths:   []string{"a", "b", "c"},
			Risks:       []string{"x", "y"},
		})
	}
	return out, nil
}

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	repo     *fakeRepo
	index    *fakeIndex
	embedder *fakeEmbedder
	reranker *fakeReranker
	service  *Service
}

func newHarness() *harness {
	repo := newFakeRepo()
	index := &fakeIndex{}
	embedder := &fakeEmbedder{}
	rr := &fakeReranker{scores: make(map[string]int)}
	return &harness{
		repo:     repo,
		index:    index,
		embedder: embedder,
		reranker: rr,
		service:  NewService(repo, index, embedder, rr),
	}
}

func (h *harness) seedResume(resumeID string, applied []string) *record.EmbeddingRecord {
	rec := &record.EmbeddingRecord{
		ID:        kernel.NewRecordID(uuid.NewString()),
		Namespace: record.NamespaceResumes,
		OwnerID:   uuid.NewString(),
		SourceID:  resumeID,
		Content:   "senior gopher, distributed systems",
		Vector:    []float32{0.5, 0.5, 0.5},
		Metadata: record.Metadata{
			Country:       "DE",
			Profession:    "Backend Engineer",
			AppliedJobIDs: applied,
			Active:        true,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.repo.put(rec)
	return rec
}

func (h *harness) seedJob(jobID string, active bool) *record.EmbeddingRecord {
	rec := &record.EmbeddingRecord{
		ID:        kernel.NewRecordID(uuid.NewString()),
		Namespace: record.NamespaceJobs,
		OwnerID:   uuid.NewString(),
		SourceID:  jobID,
		Content:   "backend engineer role, Go, Kubernetes",
		Vector:    []float32{0.5, 0.4, 0.3},
		Metadata: record.Metadata{
			Country:     "DE",
			WorkType:    record.WorkTypeRemote,
			Title:       "Backend Engineer",
			CompanyName: "Acme",
			Active:      active,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.repo.put(rec)
	return rec
}

func (h *harness) hitFor(rec *record.EmbeddingRecord, score float64) record.Hit {
	return record.Hit{
		ID:       rec.ID.String(),
		SourceID: rec.SourceID,
		Content:  rec.Content,
		Score:    score,
		Metadata: rec.Metadata,
	}
}

// ============================================================================
// MatchJobsForResume
// ============================================================================

func TestMatchJobsExcludesAppliedJobs(t *testing.T) {
	h := newHarness()
	appliedID := uuid.NewString()
	resume := h.seedResume(uuid.NewString(), []string{appliedID})

	applied := h.seedJob(appliedID, true)
	fresh := h.seedJob(uuid.NewString(), true)
	h.index.hits = []record.Hit{h.hitFor(applied, 0.99), h.hitFor(fresh, 0.80)}

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.TotalFound != 1 {
		t.Fatalf("expected 1 candidate, got %d", resp.TotalFound)
	}
	if resp.Candidates[0].SourceID != fresh.SourceID {
		t.Fatalf("expected the un-applied job, got %s", resp.Candidates[0].SourceID)
	}
	found := false
	for _, id := range h.index.lastFilter.ExcludeIDs {
		if id == appliedID {
			found = true
		}
	}
	if !found {
		t.Fatal("applied job id missing from the index exclusion filter")
	}
}

func TestMatchJobsMergesCallerExclusions(t *testing.T) {
	h := newHarness()
	appliedID := uuid.NewString()
	callerID := uuid.NewString()
	resume := h.seedResume(uuid.NewString(), []string{appliedID})

	_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID:      kernel.NewResumeID(resume.SourceID),
		ExcludeJobIDs: []string{callerID, appliedID},
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	got := h.index.lastFilter.ExcludeIDs
	if len(got) != 2 {
		t.Fatalf("expected deduplicated union of 2 ids, got %v", got)
	}
}

func TestMatchJobsUnknownResume(t *testing.T) {
	h := newHarness()

	_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(uuid.NewString()),
	})
	if !errx.HasCode(err, match.CodeSourceNotFound) {
		t.Fatalf("expected SOURCE_NOT_FOUND, got %v", err)
	}
}

func TestMatchJobsInactiveResume(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)
	resume.Metadata.Active = false
	h.repo.put(resume)

	_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if !errx.HasCode(err, match.CodeSourceInactive) {
		t.Fatalf("expected SOURCE_INACTIVE, got %v", err)
	}
}

func TestMatchJobsZeroHitsIsEmptyNotError(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)
	h.index.hits = nil

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("zero hits must not be an error, got %v", err)
	}
	if resp.TotalFound != 0 || resp.Candidates == nil || len(resp.Candidates) != 0 {
		t.Fatalf("expected empty candidate list with total 0, got %+v", resp)
	}
	if h.reranker.gotCandidates != nil {
		t.Fatal("re-ranker must not be called on zero hits")
	}
}

func TestMatchJobsTopKClamping(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	cases := []struct {
		req  int
		want int
	}{
		{0, match.DefaultTopK},
		{-3, match.MinTopK},
		{500, match.MaxTopK},
		{25, 25},
	}
	for _, tc := range cases {
		_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
			ResumeID: kernel.NewResumeID(resume.SourceID),
			TopK:     tc.req,
		})
		if err != nil {
			t.Fatalf("topK %d: %v", tc.req, err)
		}
		if h.index.lastTopK != tc.want {
			t.Fatalf("topK %d: index queried with %d, want %d", tc.req, h.index.lastTopK, tc.want)
		}
	}
}

// ============================================================================
// Assembly
// ============================================================================

func TestAssemblyDropsStaleInactiveHit(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	stale := h.seedJob(uuid.NewString(), false)
	live := h.seedJob(uuid.NewString(), true)
	// The index payload still says active; the relational row disagrees.
	staleHit := h.hitFor(stale, 0.95)
	staleHit.Metadata.Active = true
	h.index.hits = []record.Hit{staleHit, h.hitFor(live, 0.70)}

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.TotalFound != 1 || resp.Candidates[0].SourceID != live.SourceID {
		t.Fatalf("stale inactive hit survived assembly: %+v", resp.Candidates)
	}
}

func TestAssemblyDropsContradictingWorkType(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	onsite := h.seedJob(uuid.NewString(), true)
	onsite.Metadata.WorkType = record.WorkTypeOnsite
	h.repo.put(onsite)
	remote := h.seedJob(uuid.NewString(), true)

	// Both hits claim REMOTE in the index payload.
	onsiteHit := h.hitFor(onsite, 0.90)
	onsiteHit.Metadata.WorkType = record.WorkTypeRemote
	h.index.hits = []record.Hit{onsiteHit, h.hitFor(remote, 0.85)}

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
		WorkType: record.WorkTypeRemote,
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.TotalFound != 1 || resp.Candidates[0].SourceID != remote.SourceID {
		t.Fatalf("contradicting hit survived assembly: %+v", resp.Candidates)
	}
}

func TestAssemblyKeepsOpenEndedSalaryBand(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	// Posting declares a floor but no ceiling; [5000, nil) overlaps any
	// request at or above 5000 and any request whose own ceiling is open.
	job := h.seedJob(uuid.NewString(), true)
	floor := 5000
	job.Metadata.SalaryMin = &floor
	job.Metadata.SalaryMax = nil
	h.repo.put(job)
	h.index.hits = []record.Hit{h.hitFor(job, 0.9)}

	reqMin := 4000
	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID:  kernel.NewResumeID(resume.SourceID),
		SalaryMin: &reqMin,
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.TotalFound != 1 || resp.Candidates[0].SourceID != job.SourceID {
		t.Fatalf("job with an open salary ceiling dropped for salary_min=%d: %+v", reqMin, resp.Candidates)
	}
}

func TestAssemblyDropsHitOnLookupFailureOnly(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	broken := h.seedJob(uuid.NewString(), true)
	healthy := h.seedJob(uuid.NewString(), true)
	h.repo.getErr[broken.SourceID] = errors.New("connection reset")
	h.index.hits = []record.Hit{h.hitFor(broken, 0.95), h.hitFor(healthy, 0.80)}

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("one failed lookup must not fail the request: %v", err)
	}
	if resp.TotalFound != 1 || resp.Candidates[0].SourceID != healthy.SourceID {
		t.Fatalf("expected only the healthy candidate, got %+v", resp.Candidates)
	}
}

func TestAssemblyAllHitsDroppedIsEmptyResponse(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	ghost := h.hitFor(h.seedJob(uuid.NewString(), true), 0.9)
	delete(h.repo.records, h.repo.key(record.NamespaceJobs, ghost.SourceID))
	h.index.hits = []record.Hit{ghost}

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.TotalFound != 0 {
		t.Fatalf("expected empty response when every hit is dropped, got %+v", resp)
	}
	if h.reranker.gotCandidates != nil {
		t.Fatal("re-ranker must not be called with an empty candidate set")
	}
}

// ============================================================================
// Re-ranking
// ============================================================================

func TestRankingOrderOverridesSimilarity(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	first := h.seedJob(uuid.NewString(), true)
	second := h.seedJob(uuid.NewString(), true)
	h.index.hits = []record.Hit{h.hitFor(first, 0.95), h.hitFor(second, 0.60)}

	// The model disagrees with retrieval order.
	h.reranker.scores[first.SourceID] = 40
	h.reranker.scores[second.SourceID] = 90

	resp, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if resp.Candidates[0].SourceID != second.SourceID {
		t.Fatalf("expected AI score to rank results, got %s first", resp.Candidates[0].SourceID)
	}
	if resp.Candidates[0].MatchScore != 90 || resp.Candidates[1].MatchScore != 40 {
		t.Fatalf("verdict scores not carried through: %+v", resp.Candidates)
	}
	if resp.Candidates[0].Explanation == "" || len(resp.Candidates[0].Strengths) == 0 {
		t.Fatal("verdict narrative fields missing from the response")
	}
}

func TestRankingFailureFailsWholeRequest(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)
	job := h.seedJob(uuid.NewString(), true)
	h.index.hits = []record.Hit{h.hitFor(job, 0.9)}
	h.reranker.err = errors.New("model timeout")

	_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if !errx.HasCode(err, match.CodeRankingUnavailable) {
		t.Fatalf("expected RANKING_UNAVAILABLE, got %v", err)
	}
}

func TestRankingUsesRelationalContent(t *testing.T) {
	h := newHarness()
	resume := h.seedResume(uuid.NewString(), nil)

	job := h.seedJob(uuid.NewString(), true)
	staleHit := h.hitFor(job, 0.9)
	staleHit.Content = "old index payload text"
	h.index.hits = []record.Hit{staleHit}

	_, err := h.service.MatchJobsForResume(context.Background(), match.MatchJobsRequest{
		ResumeID: kernel.NewResumeID(resume.SourceID),
	})
	if err != nil {
		t.Fatalf("MatchJobsForResume: %v", err)
	}
	if h.reranker.gotQuery != resume.Content {
		t.Fatalf("expected the resume content as query, got %q", h.reranker.gotQuery)
	}
	if len(h.reranker.gotCandidates) != 1 || h.reranker.gotCandidates[0].Content != job.Content {
		t.Fatalf("expected relational content fed to the model, got %+v", h.reranker.gotCandidates)
	}
}

// ============================================================================
// RankApplicantsForJob / SearchJobs
// ============================================================================

func TestRankApplicantsRestrictsToNamedPool(t *testing.T) {
	h := newHarness()
	job := h.seedJob(uuid.NewString(), true)

	inPool := h.seedResume(uuid.NewString(), nil)
	outPool := h.seedResume(uuid.NewString(), nil)
	h.index.hits = []record.Hit{h.hitFor(inPool, 0.9), h.hitFor(outPool, 0.8)}

	resp, err := h.service.RankApplicantsForJob(context.Background(), match.RankApplicantsRequest{
		JobID:     kernel.NewJobID(job.SourceID),
		ResumeIDs: []string{inPool.SourceID},
	})
	if err != nil {
		t.Fatalf("RankApplicantsForJob: %v", err)
	}
	if resp.TotalFound != 1 || resp.Candidates[0].SourceID != inPool.SourceID {
		t.Fatalf("expected only the named applicant, got %+v", resp.Candidates)
	}
	if h.index.lastNS != record.NamespaceResumes {
		t.Fatalf("expected resumes namespace, queried %s", h.index.lastNS)
	}
}

func TestSearchJobsEmbedsNormalizedQuery(t *testing.T) {
	h := newHarness()
	job := h.seedJob(uuid.NewString(), true)
	h.index.hits = []record.Hit{h.hitFor(job, 0.7)}

	resp, err := h.service.SearchJobs(context.Background(), match.SearchJobsRequest{
		Query: "  Senior   Go   Engineer  ",
	})
	if err != nil {
		t.Fatalf("SearchJobs: %v", err)
	}
	if resp.TotalFound != 1 {
		t.Fatalf("expected 1 candidate, got %d", resp.TotalFound)
	}
	if h.reranker.gotQuery != "Senior Go Engineer" {
		t.Fatalf("expected normalized query text, got %q", h.reranker.gotQuery)
	}
}

func TestSearchJobsRejectsBlankQuery(t *testing.T) {
	h := newHarness()

	_, err := h.service.SearchJobs(context.Background(), match.SearchJobsRequest{Query: "   "})
	if !errx.HasCode(err, match.CodeInvalidQuery) {
		t.Fatalf("expected INVALID_QUERY, got %v", err)
	}
}

func TestSearchJobsProviderFailure(t *testing.T) {
	h := newHarness()
	h.embedder.err = errors.New("rate limited")

	_, err := h.service.SearchJobs(context.Background(), match.SearchJobsRequest{Query: "go engineer"})
	if !errx.HasCode(err, match.CodeProviderFailed) {
		t.Fatalf("expected PROVIDER_FAILED, got %v", err)
	}
}
