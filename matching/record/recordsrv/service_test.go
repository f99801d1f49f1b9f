package recordsrv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/errx"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRepo struct {
	records map[string]*record.EmbeddingRecord // keyed by namespace/sourceID
	calls   *[]string

	createErr error
	updateErr error
}

func repoKey(ns record.Namespace, sourceID string) string {
	return string(ns) + "/" + sourceID
}

func newFakeRepo(calls *[]string) *fakeRepo {
	return &fakeRepo{records: make(map[string]*record.EmbeddingRecord), calls: calls}
}

func (f *fakeRepo) log(call string) {
	if f.calls != nil {
		*f.calls = append(*f.calls, call)
	}
}

func (f *fakeRepo) Create(_ context.Context, rec *record.EmbeddingRecord) error {
	f.log("repo.Create")
	if f.createErr != nil {
		return f.createErr
	}
	cp := *rec
	f.records[repoKey(rec.Namespace, rec.SourceID)] = &cp
	return nil
}

func (f *fakeRepo) Update(_ context.Context, rec *record.EmbeddingRecord) error {
	f.log("repo.Update")
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *rec
	f.records[repoKey(rec.Namespace, rec.SourceID)] = &cp
	return nil
}

func (f *fakeRepo) GetBySourceID(_ context.Context, ns record.Namespace, sourceID string) (*record.EmbeddingRecord, error) {
	rec, ok := f.records[repoKey(ns, sourceID)]
	if !ok {
		return nil, record.ErrRecordNotFound()
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) ListByOwnerID(_ context.Context, ns record.Namespace, ownerID string) ([]*record.EmbeddingRecord, error) {
	var out []*record.EmbeddingRecord
	for _, rec := range f.records {
		if rec.Namespace == ns && rec.OwnerID == ownerID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) SetActive(_ context.Context, ns record.Namespace, sourceID string, active bool) error {
	f.log("repo.SetActive")
	rec, ok := f.records[repoKey(ns, sourceID)]
	if !ok {
		return record.ErrRecordNotFound()
	}
	rec.Metadata.Active = active
	return nil
}

func (f *fakeRepo) AddAppliedJob(_ context.Context, resumeID, jobID string) error {
	f.log("repo.AddAppliedJob")
	rec, ok := f.records[repoKey(record.NamespaceResumes, resumeID)]
	if !ok {
		return record.ErrRecordNotFound()
	}
	rec.AddAppliedJob(jobID)
	return nil
}

func (f *fakeRepo) RemoveAppliedJob(_ context.Context, resumeID, jobID string) error {
	f.log("repo.RemoveAppliedJob")
	rec, ok := f.records[repoKey(record.NamespaceResumes, resumeID)]
	if !ok {
		return record.ErrRecordNotFound()
	}
	rec.RemoveAppliedJob(jobID)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, ns record.Namespace, sourceID string) error {
	f.log("repo.Delete")
	delete(f.records, repoKey(ns, sourceID))
	return nil
}

type fakeIndex struct {
	points map[string]*record.IndexRecord // keyed by record id
	calls  *[]string

	upsertErr error
	fetchErr  error
	updateErr map[string]error // per record id
}

func newFakeIndex(calls *[]string) *fakeIndex {
	return &fakeIndex{points: make(map[string]*record.IndexRecord), calls: calls}
}

func (f *fakeIndex) log(call string) {
	if f.calls != nil {
		*f.calls = append(*f.calls, call)
	}
}

func (f *fakeIndex) Upsert(_ context.Context, _ record.Namespace, rec *record.EmbeddingRecord) error {
	f.log("index.Upsert")
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.points[rec.ID.String()] = &record.IndexRecord{
		ID:       rec.ID.String(),
		Vector:   append([]float32(nil), rec.Vector...),
		Metadata: rec.Metadata,
	}
	return nil
}

func (f *fakeIndex) Fetch(_ context.Context, _ record.Namespace, id string) (*record.IndexRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.points[id]
	if !ok {
		return nil, errors.New("point not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeIndex) UpdateMetadata(_ context.Context, _ record.Namespace, id string, md record.Metadata) error {
	f.log("index.UpdateMetadata")
	if err := f.updateErr[id]; err != nil {
		return err
	}
	p, ok := f.points[id]
	if !ok {
		return errors.New("point not found")
	}
	p.Metadata = md
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _ record.Namespace, id string) error {
	f.log("index.Delete")
	delete(f.points, id)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ record.Namespace, _ []float32, _ record.Filter, _ int) ([]record.Hit, error) {
	return nil, nil
}

type fakeProfiles struct {
	profiles map[string]*record.SeekerProfile
}

func (f *fakeProfiles) GetSeekerProfile(_ context.Context, seekerID kernel.SeekerID) (*record.SeekerProfile, error) {
	p, ok := f.profiles[seekerID.String()]
	if !ok {
		return nil, record.ErrSourceNotFound()
	}
	return p, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Generate(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 2}, nil
}

func (f *fakeEmbedder) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Generate(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ============================================================================
// Harness
// ============================================================================

type harness struct {
	svc      *Service
	repo     *fakeRepo
	index    *fakeIndex
	profiles *fakeProfiles
	embedder *fakeEmbedder
	calls    []string
	seekerID kernel.SeekerID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		seekerID: kernel.NewSeekerID(uuid.NewString()),
		embedder: &fakeEmbedder{},
	}
	h.repo = newFakeRepo(&h.calls)
	h.index = newFakeIndex(&h.calls)
	h.profiles = &fakeProfiles{profiles: map[string]*record.SeekerProfile{
		h.seekerID.String(): {SeekerID: h.seekerID, Country: "MY", Profession: "Engineer"},
	}}
	h.svc = NewService(h.repo, h.index, h.profiles, h.embedder, nil, nil, nil,
		PropagationPolicy{ChunkSize: 2, Delay: time.Millisecond})
	return h
}

func (h *harness) indexResume(t *testing.T) (*record.RecordResponse, kernel.ResumeID) {
	t.Helper()
	resumeID := kernel.NewResumeID(uuid.NewString())
	resp, err := h.svc.IndexResume(context.Background(), record.IndexResumeRequest{
		SeekerID: h.seekerID,
		ResumeID: resumeID,
		Text:     "Led platform team, shipped v1",
	})
	if err != nil {
		t.Fatalf("IndexResume() error = %v", err)
	}
	return resp, resumeID
}

// ============================================================================
// Create protocol
// ============================================================================

func TestIndexResumeWritesRelationalFirst(t *testing.T) {
	h := newHarness(t)
	resp, resumeID := h.indexResume(t)

	if len(h.calls) != 2 || h.calls[0] != "repo.Create" || h.calls[1] != "index.Upsert" {
		t.Fatalf("call order = %v, want [repo.Create index.Upsert]", h.calls)
	}

	// The same id must key both stores.
	stored, err := h.repo.GetBySourceID(context.Background(), record.NamespaceResumes, resumeID.String())
	if err != nil {
		t.Fatalf("GetBySourceID() error = %v", err)
	}
	if _, ok := h.index.points[stored.ID.String()]; !ok {
		t.Errorf("index has no point for record id %s", stored.ID)
	}
	if resp.ID != stored.ID {
		t.Errorf("response id %s != stored id %s", resp.ID, stored.ID)
	}
}

func TestIndexResumeIndexFailureKeepsRelationalRow(t *testing.T) {
	h := newHarness(t)
	h.index.upsertErr = errors.New("index down")

	resumeID := kernel.NewResumeID(uuid.NewString())
	_, err := h.svc.IndexResume(context.Background(), record.IndexResumeRequest{
		SeekerID: h.seekerID,
		ResumeID: resumeID,
		Text:     "some resume text",
	})
	if !errx.HasCode(err, record.CodeIndexWriteFailed) {
		t.Fatalf("error = %v, want code %s", err, record.CodeIndexWriteFailed)
	}

	// The relational row survives for the repair path.
	if _, err := h.repo.GetBySourceID(context.Background(), record.NamespaceResumes, resumeID.String()); err != nil {
		t.Fatal("relational row should remain after index write failure")
	}

	// Reindex repairs the index without touching the row's identity.
	h.index.upsertErr = nil
	resp, err := h.svc.ReindexResume(context.Background(), resumeID)
	if err != nil {
		t.Fatalf("ReindexResume() error = %v", err)
	}
	if _, ok := h.index.points[resp.ID.String()]; !ok {
		t.Error("reindex should write the point under the original record id")
	}
}

func TestReindexResumeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	resp, resumeID := h.indexResume(t)

	for i := 0; i < 3; i++ {
		again, err := h.svc.ReindexResume(context.Background(), resumeID)
		if err != nil {
			t.Fatalf("ReindexResume() #%d error = %v", i, err)
		}
		if again.ID != resp.ID {
			t.Fatalf("reindex changed record id: %s != %s", again.ID, resp.ID)
		}
	}
	if len(h.index.points) != 1 {
		t.Errorf("index holds %d points, want 1", len(h.index.points))
	}
}

func TestIndexResumeIncompleteProfile(t *testing.T) {
	h := newHarness(t)
	h.profiles.profiles[h.seekerID.String()] = &record.SeekerProfile{SeekerID: h.seekerID, Country: "MY"}

	_, err := h.svc.IndexResume(context.Background(), record.IndexResumeRequest{
		SeekerID: h.seekerID,
		ResumeID: kernel.NewResumeID(uuid.NewString()),
		Text:     "text",
	})
	if !errx.HasCode(err, record.CodeIncompleteProfile) {
		t.Fatalf("error = %v, want code %s", err, record.CodeIncompleteProfile)
	}

	// Nothing may be written on a failed precondition.
	if len(h.repo.records) != 0 || len(h.index.points) != 0 {
		t.Error("no store should be written when the profile is incomplete")
	}
}

func TestIndexResumeEmbeddingFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.embedder.err = errors.New("provider timeout")

	_, err := h.svc.IndexResume(context.Background(), record.IndexResumeRequest{
		SeekerID: h.seekerID,
		ResumeID: kernel.NewResumeID(uuid.NewString()),
		Text:     "text",
	})
	if !errx.HasCode(err, record.CodeProviderFailed) {
		t.Fatalf("error = %v, want code %s", err, record.CodeProviderFailed)
	}
	if len(h.repo.records) != 0 {
		t.Error("relational store must stay empty when embedding fails")
	}
}

// ============================================================================
// Delete protocol
// ============================================================================

func TestDeleteResumeRemovesIndexFirst(t *testing.T) {
	h := newHarness(t)
	_, resumeID := h.indexResume(t)
	h.calls = nil

	if err := h.svc.DeleteResume(context.Background(), resumeID); err != nil {
		t.Fatalf("DeleteResume() error = %v", err)
	}

	if len(h.calls) != 2 || h.calls[0] != "index.Delete" || h.calls[1] != "repo.Delete" {
		t.Fatalf("call order = %v, want [index.Delete repo.Delete]", h.calls)
	}
	if len(h.index.points) != 0 || len(h.repo.records) != 0 {
		t.Error("both stores should be empty after delete")
	}
}

// ============================================================================
// Metadata updates
// ============================================================================

func TestSetResumeActiveMergesIndexMetadata(t *testing.T) {
	h := newHarness(t)
	resp, resumeID := h.indexResume(t)

	if err := h.svc.AddAppliedJob(context.Background(), resumeID, kernel.JobID("job-7")); err != nil {
		t.Fatalf("AddAppliedJob() error = %v", err)
	}
	if err := h.svc.SetResumeActive(context.Background(), resumeID, false); err != nil {
		t.Fatalf("SetResumeActive() error = %v", err)
	}

	point := h.index.points[resp.ID.String()]
	if point.Metadata.Active {
		t.Error("index point should be inactive")
	}
	// The active flip must not wipe fields it did not touch.
	if point.Metadata.Country != "MY" || point.Metadata.Profession != "Engineer" {
		t.Errorf("profile fields lost during active flip: %+v", point.Metadata)
	}
	if len(point.Metadata.AppliedJobIDs) != 1 || point.Metadata.AppliedJobIDs[0] != "job-7" {
		t.Errorf("applied job ids lost during active flip: %v", point.Metadata.AppliedJobIDs)
	}
}

func TestSetResumeActiveIndexFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t)
	_, resumeID := h.indexResume(t)
	h.index.fetchErr = errors.New("index down")

	if err := h.svc.SetResumeActive(context.Background(), resumeID, false); err != nil {
		t.Fatalf("SetResumeActive() error = %v, relational update succeeded so the call must too", err)
	}

	rec, _ := h.repo.GetBySourceID(context.Background(), record.NamespaceResumes, resumeID.String())
	if rec.Metadata.Active {
		t.Error("relational row should be inactive even when the index patch failed")
	}
}

func TestAppliedJobRoundTrip(t *testing.T) {
	h := newHarness(t)
	resp, resumeID := h.indexResume(t)

	jobID := kernel.JobID("job-42")
	if err := h.svc.AddAppliedJob(context.Background(), resumeID, jobID); err != nil {
		t.Fatalf("AddAppliedJob() error = %v", err)
	}

	point := h.index.points[resp.ID.String()]
	if len(point.Metadata.AppliedJobIDs) != 1 {
		t.Fatalf("index applied jobs = %v, want one entry", point.Metadata.AppliedJobIDs)
	}

	if err := h.svc.RemoveAppliedJob(context.Background(), resumeID, jobID); err != nil {
		t.Fatalf("RemoveAppliedJob() error = %v", err)
	}
	point = h.index.points[resp.ID.String()]
	if len(point.Metadata.AppliedJobIDs) != 0 {
		t.Errorf("index applied jobs = %v, want empty after removal", point.Metadata.AppliedJobIDs)
	}
}

// ============================================================================
// Batch propagation
// ============================================================================

func TestPropagateSeekerProfileSkipsFailedRecords(t *testing.T) {
	h := newHarness(t)

	var ids []string
	for i := 0; i < 5; i++ {
		resp, _ := h.indexResume(t)
		ids = append(ids, resp.ID.String())
	}

	h.index.updateErr = map[string]error{ids[2]: errors.New("rate limited")}

	country := "SG"
	result, err := h.svc.PropagateSeekerProfile(context.Background(), record.PropagateProfileRequest{
		SeekerID: h.seekerID,
		Country:  &country,
	})
	if err != nil {
		t.Fatalf("PropagateSeekerProfile() error = %v", err)
	}

	if result.Total != 5 || result.Updated != 4 {
		t.Errorf("result = %+v, want total 5 updated 4", result)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != ids[2] {
		t.Errorf("skipped = %v, want [%s]", result.Skipped, ids[2])
	}

	// Every relational row carries the new country regardless of the index
	// failure.
	for _, rec := range h.repo.records {
		if rec.Metadata.Country != "SG" {
			t.Errorf("relational record %s country = %s, want SG", rec.ID, rec.Metadata.Country)
		}
	}

	// The surviving index points carry it too, with profession intact.
	for _, id := range ids {
		if id == ids[2] {
			continue
		}
		p := h.index.points[id]
		if p.Metadata.Country != "SG" || p.Metadata.Profession != "Engineer" {
			t.Errorf("index point %s metadata = %+v", id, p.Metadata)
		}
	}
}

func TestPropagateSeekerProfileRejectsEmptyPatch(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.PropagateSeekerProfile(context.Background(), record.PropagateProfileRequest{
		SeekerID: h.seekerID,
	})
	if !errx.HasCode(err, record.CodeInvalidRecordData) {
		t.Fatalf("error = %v, want code %s", err, record.CodeInvalidRecordData)
	}
}
