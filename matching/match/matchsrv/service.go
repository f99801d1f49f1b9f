package matchsrv

import (
	"context"
	"sort"
	"sync"

	"github.com/resumatch/resumatch/internal/ai/reranker"
	"github.com/resumatch/resumatch/matching/match"
	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/errx"
	"github.com/resumatch/resumatch/pkg/logx"
	"github.com/resumatch/resumatch/pkg/textnorm"
)

type Service struct {
	repo     record.Repository
	index    record.VectorIndex
	embedder record.Embedder
	reranker match.Reranker
}

// NewService creates the match service
func NewService(
	repo record.Repository,
	index record.VectorIndex,
	embedder record.Embedder,
	rr match.Reranker,
) *Service {
	return &Service{
		repo:     repo,
		index:    index,
		embedder: embedder,
		reranker: rr,
	}
}

// ============================================================================
// Match operations
// ============================================================================

// MatchJobsForResume finds and ranks jobs for an indexed resume. The
// resume's stored vector is the query; its applied-job list plus any
// caller-supplied ids form the exclusion set.
func (s *Service) MatchJobsForResume(ctx context.Context, req match.MatchJobsRequest) (*match.MatchResponse, error) {
	rec, err := s.repo.GetBySourceID(ctx, record.NamespaceResumes, req.ResumeID.String())
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, match.ErrSourceNotFound().
				WithDetail("resume_id", req.ResumeID.String())
		}
		return nil, err
	}
	if !rec.Metadata.Active {
		return nil, match.ErrSourceInactive().
			WithDetail("resume_id", req.ResumeID.String())
	}

	exclude := unionIDs(rec.Metadata.AppliedJobIDs, req.ExcludeJobIDs)
	filter := record.Filter{
		Country:    req.Country,
		WorkType:   req.WorkType,
		SalaryMin:  req.SalaryMin,
		SalaryMax:  req.SalaryMax,
		ExcludeIDs: exclude,
	}

	return s.run(ctx, record.NamespaceJobs, rec.Content, rec.Vector, filter, match.ClampTopK(req.TopK))
}

// RankApplicantsForJob ranks applicant resumes against an indexed job
// posting. The job's stored vector is the query.
func (s *Service) RankApplicantsForJob(ctx context.Context, req match.RankApplicantsRequest) (*match.MatchResponse, error) {
	rec, err := s.repo.GetBySourceID(ctx, record.NamespaceJobs, req.JobID.String())
	if err != nil {
		if errx.IsType(err, errx.TypeNotFound) {
			return nil, match.ErrSourceNotFound().
				WithDetail("job_id", req.JobID.String())
		}
		return nil, err
	}
	if !rec.Metadata.Active {
		return nil, match.ErrSourceInactive().
			WithDetail("job_id", req.JobID.String())
	}

	filter := record.Filter{
		Country:    req.Country,
		Profession: req.Profession,
	}

	resp, err := s.run(ctx, record.NamespaceResumes, rec.Content, rec.Vector, filter, match.ClampTopK(req.TopK))
	if err != nil {
		return nil, err
	}

	// When the caller names the applicant pool, anyone outside it is cut
	// after assembly rather than pushed into the index filter.
	if len(req.ResumeIDs) > 0 {
		allowed := make(map[string]bool, len(req.ResumeIDs))
		for _, id := range req.ResumeIDs {
			allowed[id] = true
		}
		kept := resp.Candidates[:0]
		for _, c := range resp.Candidates {
			if allowed[c.SourceID] {
				kept = append(kept, c)
			}
		}
		resp.Candidates = kept
		resp.TotalFound = len(kept)
	}
	return resp, nil
}

// SearchJobs embeds free query text and ranks jobs against it.
func (s *Service) SearchJobs(ctx context.Context, req match.SearchJobsRequest) (*match.MatchResponse, error) {
	query := textnorm.Normalize(req.Query)
	if query == "" {
		return nil, match.ErrInvalidQuery().WithDetail("reason", "empty query")
	}

	vector, err := s.embedder.Generate(ctx, query)
	if err != nil {
		return nil, match.ErrProviderFailed(err)
	}

	filter := record.Filter{
		Country:   req.Country,
		WorkType:  req.WorkType,
		SalaryMin: req.SalaryMin,
		SalaryMax: req.SalaryMax,
	}

	return s.run(ctx, record.NamespaceJobs, query, vector, filter, match.ClampTopK(req.TopK))
}

// ============================================================================
// Pipeline
// ============================================================================

// run executes query, assembly and re-ranking. Zero hits short-circuit to
// the empty response before any model call.
func (s *Service) run(ctx context.Context, ns record.Namespace, queryText string, vector []float32, filter record.Filter, topK int) (*match.MatchResponse, error) {
	hits, err := s.index.Query(ctx, ns, vector, filter, topK)
	if err != nil {
		return nil, match.ErrQueryFailed(err)
	}
	if len(hits) == 0 {
		return match.EmptyMatchResponse(), nil
	}

	candidates := s.assemble(ctx, ns, hits, filter)
	if len(candidates) == 0 {
		return match.EmptyMatchResponse(), nil
	}

	ranked, err := s.rank(ctx, queryText, candidates)
	if err != nil {
		return nil, err
	}

	return &match.MatchResponse{
		Candidates: ranked,
		TotalFound: len(ranked),
	}, nil
}

// assemble hydrates hits from the relational store concurrently, keeping
// similarity order. A hit whose relational record is missing, inactive or
// contradicts the filter is dropped, never fails the batch; the relational
// store is ground truth over stale index metadata.
func (s *Service) assemble(ctx context.Context, ns record.Namespace, hits []record.Hit, filter record.Filter) []match.Candidate {
	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	results := make([]*match.Candidate, len(hits))
	var wg sync.WaitGroup
	for i, hit := range hits {
		wg.Add(1)
		go func(i int, hit record.Hit) {
			defer wg.Done()

			rec, err := s.repo.GetBySourceID(ctx, ns, hit.SourceID)
			if err != nil {
				logx.Warnf("Dropping hit %s: relational lookup failed: %v", hit.SourceID, err)
				return
			}
			if !rec.Metadata.Active {
				logx.Warnf("Dropping hit: %v", match.ErrInconsistentState().
					WithDetail("source_id", hit.SourceID).
					WithDetail("reason", "inactive in relational store"))
				return
			}
			if excluded[rec.SourceID] {
				return
			}
			if !matchesFilter(rec.Metadata, filter) {
				logx.Warnf("Dropping hit: %v", match.ErrInconsistentState().
					WithDetail("source_id", hit.SourceID).
					WithDetail("reason", "relational metadata contradicts the query filter"))
				return
			}

			results[i] = &match.Candidate{
				SourceID:   rec.SourceID,
				OwnerID:    rec.OwnerID,
				Content:    rec.Content,
				Similarity: hit.Score,
				Metadata:   rec.Metadata,
			}
		}(i, hit)
	}
	wg.Wait()

	candidates := make([]match.Candidate, 0, len(hits))
	for _, c := range results {
		if c != nil {
			candidates = append(candidates, *c)
		}
	}
	return candidates
}

// matchesFilter re-checks the filter against relational metadata, catching
// index payloads that lag behind a relational update.
func matchesFilter(md record.Metadata, f record.Filter) bool {
	if f.Country != "" && md.Country != f.Country {
		return false
	}
	if f.Profession != "" && md.Profession != f.Profession {
		return false
	}
	if f.WorkType != "" && md.WorkType != f.WorkType {
		return false
	}
	if f.SalaryMin != nil && md.SalaryMax != nil && *md.SalaryMax < *f.SalaryMin {
		return false
	}
	if f.SalaryMax != nil && md.SalaryMin != nil && *md.SalaryMin > *f.SalaryMax {
		return false
	}
	return true
}

// rank runs the structured re-ranking call and orders candidates by the AI
// match score. Similarity breaks ties but never overrides the score.
func (s *Service) rank(ctx context.Context, queryText string, candidates []match.Candidate) ([]match.RankedCandidate, error) {
	inputs := make([]reranker.CandidateInput, 0, len(candidates))
	for _, c := range candidates {
		inputs = append(inputs, reranker.CandidateInput{
			SourceID:   c.SourceID,
			Title:      c.Metadata.Title,
			Content:    c.Content,
			Similarity: c.Similarity,
		})
	}

	verdicts, err := s.reranker.Rank(ctx, queryText, inputs)
	if err != nil {
		logx.Errorf("Re-ranking failed, failing match request: %v", err)
		return nil, match.ErrRankingUnavailable(err)
	}

	byID := make(map[string]reranker.RankedMatch, len(verdicts))
	for _, v := range verdicts {
		byID[v.SourceID] = v
	}

	ranked := make([]match.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		v := byID[c.SourceID]
		ranked = append(ranked, match.RankedCandidate{
			Candidate:   c,
			MatchScore:  v.MatchScore,
			Explanation: v.Explanation,
			Strengths:   v.Strengths,
			Risks:       v.Risks,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked, nil
}

func unionIDs(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string{}, a...), b...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
