package record

import (
	"time"

	"github.com/google/uuid"

	"github.com/resumatch/resumatch/pkg/kernel"
)

// Namespace separates resume vectors from job vectors in the index.
type Namespace string

const (
	NamespaceResumes Namespace = "resumes"
	NamespaceJobs    Namespace = "jobs"
)

// WorkType for job postings
type WorkType string

const (
	WorkTypeRemote WorkType = "REMOTE"
	WorkTypeHybrid WorkType = "HYBRID"
	WorkTypeOnsite WorkType = "ONSITE"
)

// ValidWorkType reports whether wt is one of the known values.
func ValidWorkType(wt WorkType) bool {
	switch wt {
	case WorkTypeRemote, WorkTypeHybrid, WorkTypeOnsite:
		return true
	}
	return false
}

// EmbeddingRecord is one embedded document, stored redundantly in the
// relational store and the vector index under the same ID.
type EmbeddingRecord struct {
	ID        kernel.RecordID `db:"id" json:"id"`
	Namespace Namespace       `db:"-" json:"namespace"`

	// OwnerID is the seeker id for resumes, the company id for jobs.
	OwnerID  string `db:"owner_id" json:"owner_id"`
	SourceID string `db:"source_id" json:"source_id"` // resume id or job id

	// Content is the normalized text that was embedded, kept for
	// traceability and for the re-ranking prompt.
	Content string    `db:"content" json:"content"`
	Vector  []float32 `db:"-" json:"-"`

	Metadata Metadata `db:"-" json:"metadata"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Metadata holds the structured attributes used for filtered search.
// Country/Profession apply to resumes, WorkType/Salary*/Title/CompanyName
// to jobs.
type Metadata struct {
	Country    string `json:"country,omitempty"`
	Profession string `json:"profession,omitempty"`

	WorkType    WorkType `json:"work_type,omitempty"`
	SalaryMin   *int     `json:"salary_min,omitempty"`
	SalaryMax   *int     `json:"salary_max,omitempty"`
	Title       string   `json:"title,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`

	// AppliedJobIDs lists job ids the resume owner already applied to,
	// so matching never offers them again. Resumes only.
	AppliedJobIDs []string `json:"applied_job_ids,omitempty"`

	// Active is false when the owner is banned or the job is closed.
	Active bool `json:"active"`

	SourceURL string `json:"source_url,omitempty"`
}

// MetadataPatch is a partial metadata update. Nil fields are left as-is by
// Merge, so a patch never clobbers attributes it does not mention.
type MetadataPatch struct {
	Country       *string   `json:"country,omitempty"`
	Profession    *string   `json:"profession,omitempty"`
	WorkType      *WorkType `json:"work_type,omitempty"`
	SalaryMin     *int      `json:"salary_min,omitempty"`
	SalaryMax     *int      `json:"salary_max,omitempty"`
	AppliedJobIDs *[]string `json:"applied_job_ids,omitempty"`
	Active        *bool     `json:"active,omitempty"`
}

// Merge applies patch on top of m and returns the result. Only the fields
// the patch sets change; the embedding vector is untouched by design since
// metadata updates must never require re-embedding.
func (m Metadata) Merge(patch MetadataPatch) Metadata {
	if patch.Country != nil {
		m.Country = *patch.Country
	}
	if patch.Profession != nil {
		m.Profession = *patch.Profession
	}
	if patch.WorkType != nil {
		m.WorkType = *patch.WorkType
	}
	if patch.SalaryMin != nil {
		m.SalaryMin = patch.SalaryMin
	}
	if patch.SalaryMax != nil {
		m.SalaryMax = patch.SalaryMax
	}
	if patch.AppliedJobIDs != nil {
		m.AppliedJobIDs = append([]string(nil), (*patch.AppliedJobIDs)...)
	}
	if patch.Active != nil {
		m.Active = *patch.Active
	}
	return m
}

// SeekerProfile is the slice of the seeker's profile the matcher needs.
type SeekerProfile struct {
	SeekerID   kernel.SeekerID `db:"seeker_id" json:"seeker_id"`
	Country    string          `db:"country" json:"country"`
	Profession string          `db:"profession" json:"profession"`
}

// IsComplete reports whether the profile carries the fields resume
// metadata requires.
func (p *SeekerProfile) IsComplete() bool {
	return p.Country != "" && p.Profession != ""
}

// NewResumeRecord builds the embedding record for a resume. The seeker's
// profile must be complete; new records start active with no applied jobs.
func NewResumeRecord(seekerID kernel.SeekerID, resumeID kernel.ResumeID, content string, vector []float32, profile *SeekerProfile, sourceURL string) (*EmbeddingRecord, error) {
	if profile == nil || !profile.IsComplete() {
		return nil, ErrIncompleteProfile().
			WithDetail("seeker_id", seekerID.String()).
			WithDetail("required_fields", "country, profession")
	}
	if content == "" || len(vector) == 0 {
		return nil, ErrInvalidRecordData()
	}

	now := time.Now()
	return &EmbeddingRecord{
		ID:        kernel.NewRecordID(uuid.NewString()),
		Namespace: NamespaceResumes,
		OwnerID:   seekerID.String(),
		SourceID:  resumeID.String(),
		Content:   content,
		Vector:    vector,
		Metadata: Metadata{
			Country:       profile.Country,
			Profession:    profile.Profession,
			AppliedJobIDs: []string{},
			Active:        true,
			SourceURL:     sourceURL,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// JobAttributes carries the job posting fields stored as filter metadata.
type JobAttributes struct {
	Title       string
	CompanyName string
	Country     string
	WorkType    WorkType
	SalaryMin   int
	SalaryMax   int
	SourceURL   string
}

// NewJobRecord builds the embedding record for a job posting. Jobs need no
// profile lookup; new records start active.
func NewJobRecord(companyID kernel.CompanyID, jobID kernel.JobID, content string, vector []float32, attrs JobAttributes) (*EmbeddingRecord, error) {
	if content == "" || len(vector) == 0 {
		return nil, ErrInvalidRecordData()
	}
	if attrs.WorkType != "" && !ValidWorkType(attrs.WorkType) {
		return nil, ErrInvalidRecordData().WithDetail("work_type", string(attrs.WorkType))
	}
	if attrs.SalaryMin > attrs.SalaryMax && attrs.SalaryMax != 0 {
		return nil, ErrInvalidRecordData().WithDetail("salary", "salary_min exceeds salary_max")
	}

	md := Metadata{
		Country:     attrs.Country,
		WorkType:    attrs.WorkType,
		Title:       attrs.Title,
		CompanyName: attrs.CompanyName,
		Active:      true,
		SourceURL:   attrs.SourceURL,
	}
	// A bound of 0 means unbounded on that side; only declared bounds are
	// stored so half-open bands stay half-open in both stores.
	if attrs.SalaryMin > 0 {
		salaryMin := attrs.SalaryMin
		md.SalaryMin = &salaryMin
	}
	if attrs.SalaryMax > 0 {
		salaryMax := attrs.SalaryMax
		md.SalaryMax = &salaryMax
	}

	now := time.Now()
	return &EmbeddingRecord{
		ID:        kernel.NewRecordID(uuid.NewString()),
		Namespace: NamespaceJobs,
		OwnerID:   companyID.String(),
		SourceID:  jobID.String(),
		Content:   content,
		Vector:    vector,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ============================================================================
// Domain Methods
// ============================================================================

// Activate marks the record eligible for matching
func (r *EmbeddingRecord) Activate() {
	r.Metadata.Active = true
	r.UpdatedAt = time.Now()
}

// Deactivate hides the record from matching (ban, admin closure)
func (r *EmbeddingRecord) Deactivate() {
	r.Metadata.Active = false
	r.UpdatedAt = time.Now()
}

// HasAppliedTo reports whether the resume owner already applied to jobID
func (r *EmbeddingRecord) HasAppliedTo(jobID string) bool {
	for _, id := range r.Metadata.AppliedJobIDs {
		if id == jobID {
			return true
		}
	}
	return false
}

// AddAppliedJob records an application; duplicates are ignored
func (r *EmbeddingRecord) AddAppliedJob(jobID string) {
	if r.HasAppliedTo(jobID) {
		return
	}
	r.Metadata.AppliedJobIDs = append(r.Metadata.AppliedJobIDs, jobID)
	r.UpdatedAt = time.Now()
}

// RemoveAppliedJob drops a withdrawn application from the exclusion list
func (r *EmbeddingRecord) RemoveAppliedJob(jobID string) {
	kept := r.Metadata.AppliedJobIDs[:0]
	for _, id := range r.Metadata.AppliedJobIDs {
		if id != jobID {
			kept = append(kept, id)
		}
	}
	r.Metadata.AppliedJobIDs = kept
	r.UpdatedAt = time.Now()
}

// IsResume reports whether this record lives in the resumes namespace
func (r *EmbeddingRecord) IsResume() bool {
	return r.Namespace == NamespaceResumes
}

// IsJob reports whether this record lives in the jobs namespace
func (r *EmbeddingRecord) IsJob() bool {
	return r.Namespace == NamespaceJobs
}
