package match

import (
	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// ============================================================================
// Request DTOs
// ============================================================================

// MatchJobsRequest - Find jobs for an indexed resume
type MatchJobsRequest struct {
	ResumeID kernel.ResumeID `json:"resume_id" validate:"required"`
	TopK     int             `json:"top_k"`

	Country  string          `json:"country,omitempty"`
	WorkType record.WorkType `json:"work_type,omitempty"`

	SalaryMin *int `json:"salary_min,omitempty"`
	SalaryMax *int `json:"salary_max,omitempty"`

	// ExcludeJobIDs is merged with the resume's own applied-job list.
	ExcludeJobIDs []string `json:"exclude_job_ids,omitempty"`
}

// RankApplicantsRequest - Rank applicant resumes for an indexed job
type RankApplicantsRequest struct {
	JobID kernel.JobID `json:"job_id" validate:"required"`
	TopK  int          `json:"top_k"`

	Country    string `json:"country,omitempty"`
	Profession string `json:"profession,omitempty"`

	// ResumeIDs restricts ranking to these applicants when set; otherwise
	// the whole resume index is searched.
	ResumeIDs []string `json:"resume_ids,omitempty"`
}

// SearchJobsRequest - Free-text semantic job search
type SearchJobsRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k"`

	Country  string          `json:"country,omitempty"`
	WorkType record.WorkType `json:"work_type,omitempty"`

	SalaryMin *int `json:"salary_min,omitempty"`
	SalaryMax *int `json:"salary_max,omitempty"`
}

// ============================================================================
// Response DTOs
// ============================================================================

// MatchResponse - Ranked candidates ordered by AI match score. An empty
// candidate list with TotalFound 0 is a valid "no matches" outcome.
type MatchResponse struct {
	Candidates []RankedCandidate `json:"candidates"`
	TotalFound int               `json:"total_found"`
}

// EmptyMatchResponse is the canonical zero-hit result.
func EmptyMatchResponse() *MatchResponse {
	return &MatchResponse{
		Candidates: []RankedCandidate{},
		TotalFound: 0,
	}
}
