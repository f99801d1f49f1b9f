package recordinfra

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/logx"
)

// QdrantIndex is the vector side of the dual store. Each namespace maps to
// its own collection; points are keyed by the embedding record id.
type QdrantIndex struct {
	client           *qdrant.Client
	collectionPrefix string
	dimension        uint64
}

func NewQdrantIndex(client *qdrant.Client, collectionPrefix string, dimension int) *QdrantIndex {
	return &QdrantIndex{
		client:           client,
		collectionPrefix: collectionPrefix,
		dimension:        uint64(dimension),
	}
}

func (q *QdrantIndex) collection(ns record.Namespace) string {
	return q.collectionPrefix + "_" + string(ns)
}

// EnsureCollections creates the resume and job collections when missing.
// Called once at startup.
func (q *QdrantIndex) EnsureCollections(ctx context.Context) error {
	for _, ns := range []record.Namespace{record.NamespaceResumes, record.NamespaceJobs} {
		name := q.collection(ns)
		exists, err := q.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check collection %s: %w", name, err)
		}
		if exists {
			continue
		}

		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     q.dimension,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		logx.Infof("Created vector collection %s (dim=%d, cosine)", name, q.dimension)
	}
	return nil
}

// Upsert writes vector plus metadata for a record
func (q *QdrantIndex) Upsert(ctx context.Context, ns record.Namespace, rec *record.EmbeddingRecord) error {
	payload := metadataToPayload(rec.SourceID, rec.OwnerID, rec.Content, rec.Metadata)

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection(ns),
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(rec.ID.String()),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s: %w", rec.ID, err)
	}
	return nil
}

// Fetch reads one point back with its current metadata and vector
func (q *QdrantIndex) Fetch(ctx context.Context, ns record.Namespace, id string) (*record.IndexRecord, error) {
	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection(ns),
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, record.ErrIndexReadFailed(err).WithDetail("point_id", id)
	}
	if len(points) == 0 {
		return nil, record.ErrIndexReadFailed(fmt.Errorf("point %s not found in %s", id, q.collection(ns)))
	}

	point := points[0]
	rec := &record.IndexRecord{
		ID:       id,
		SourceID: stringValue(point.Payload, "source_id"),
		OwnerID:  stringValue(point.Payload, "owner_id"),
		Content:  stringValue(point.Payload, "content"),
		Metadata: payloadToMetadata(point.Payload),
	}
	if v := point.Vectors.GetVector(); v != nil {
		rec.Vector = v.Data
	}
	return rec, nil
}

// UpdateMetadata overwrites the point's payload with merged metadata. The
// vector is untouched.
func (q *QdrantIndex) UpdateMetadata(ctx context.Context, ns record.Namespace, id string, md record.Metadata) error {
	// The traceability fields are preserved by re-reading them so the full
	// payload overwrite cannot drop them.
	current, err := q.Fetch(ctx, ns, id)
	if err != nil {
		return err
	}

	payload := metadataToPayload(current.SourceID, current.OwnerID, current.Content, md)

	_, err = q.client.OverwritePayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: q.collection(ns),
		Wait:           qdrant.PtrOf(true),
		Payload:        qdrant.NewValueMap(payload),
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		return fmt.Errorf("update metadata for point %s: %w", id, err)
	}
	return nil
}

// Delete removes the point
func (q *QdrantIndex) Delete(ctx context.Context, ns record.Namespace, id string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection(ns),
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		return fmt.Errorf("delete point %s: %w", id, err)
	}
	return nil
}

// Query runs filtered nearest-neighbor search. Zero hits is a valid empty
// result.
func (q *QdrantIndex) Query(ctx context.Context, ns record.Namespace, vector []float32, filter record.Filter, topK int) ([]record.Hit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection(ns),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.collection(ns), err)
	}

	hits := make([]record.Hit, 0, len(points))
	for _, point := range points {
		hits = append(hits, record.Hit{
			ID:       point.Id.GetUuid(),
			SourceID: stringValue(point.Payload, "source_id"),
			Content:  stringValue(point.Payload, "content"),
			Score:    float64(point.Score),
			Metadata: payloadToMetadata(point.Payload),
		})
	}
	return hits, nil
}

// buildFilter translates the domain filter into qdrant conditions. Unset
// fields add no constraint; active=true is always enforced here so inactive
// records can never leak out of a search.
func buildFilter(f record.Filter) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatchBool("active", true),
	}

	if f.Country != "" {
		must = append(must, qdrant.NewMatch("country", f.Country))
	}
	if f.Profession != "" {
		must = append(must, qdrant.NewMatch("profession", f.Profession))
	}
	if f.WorkType != "" {
		must = append(must, qdrant.NewMatch("work_type", string(f.WorkType)))
	}

	// Salary is an overlap test: the candidate's band must intersect the
	// requested band, so the candidate's max bounds our min and vice versa.
	// A record without a bound is unbounded on that side and always passes,
	// hence the IsEmpty alternative.
	if f.SalaryMin != nil {
		must = append(must, qdrant.NewFilterAsCondition(&qdrant.Filter{
			Should: []*qdrant.Condition{
				qdrant.NewRange("salary_max", &qdrant.Range{
					Gte: qdrant.PtrOf(float64(*f.SalaryMin)),
				}),
				qdrant.NewIsEmpty("salary_max"),
			},
		}))
	}
	if f.SalaryMax != nil {
		must = append(must, qdrant.NewFilterAsCondition(&qdrant.Filter{
			Should: []*qdrant.Condition{
				qdrant.NewRange("salary_min", &qdrant.Range{
					Lte: qdrant.PtrOf(float64(*f.SalaryMax)),
				}),
				qdrant.NewIsEmpty("salary_min"),
			},
		}))
	}

	filter := &qdrant.Filter{Must: must}
	if len(f.ExcludeIDs) > 0 {
		filter.MustNot = []*qdrant.Condition{
			qdrant.NewMatchKeywords("source_id", f.ExcludeIDs...),
		}
	}
	return filter
}

func metadataToPayload(sourceID, ownerID, content string, md record.Metadata) map[string]any {
	applied := make([]any, 0, len(md.AppliedJobIDs))
	for _, id := range md.AppliedJobIDs {
		applied = append(applied, id)
	}

	payload := map[string]any{
		"source_id": sourceID,
		"active":    md.Active,
	}
	if ownerID != "" {
		payload["owner_id"] = ownerID
	}
	if content != "" {
		payload["content"] = content
	}
	if md.Country != "" {
		payload["country"] = md.Country
	}
	if md.Profession != "" {
		payload["profession"] = md.Profession
	}
	if md.WorkType != "" {
		payload["work_type"] = string(md.WorkType)
	}
	if md.SalaryMin != nil {
		payload["salary_min"] = int64(*md.SalaryMin)
	}
	if md.SalaryMax != nil {
		payload["salary_max"] = int64(*md.SalaryMax)
	}
	if md.Title != "" {
		payload["title"] = md.Title
	}
	if md.CompanyName != "" {
		payload["company_name"] = md.CompanyName
	}
	if md.SourceURL != "" {
		payload["source_url"] = md.SourceURL
	}
	if len(applied) > 0 || md.AppliedJobIDs != nil {
		payload["applied_job_ids"] = applied
	}
	return payload
}

func payloadToMetadata(payload map[string]*qdrant.Value) record.Metadata {
	md := record.Metadata{
		Country:     stringValue(payload, "country"),
		Profession:  stringValue(payload, "profession"),
		WorkType:    record.WorkType(stringValue(payload, "work_type")),
		Title:       stringValue(payload, "title"),
		CompanyName: stringValue(payload, "company_name"),
		SourceURL:   stringValue(payload, "source_url"),
	}

	if v, ok := payload["active"]; ok {
		md.Active = v.GetBoolValue()
	}
	if v, ok := payload["salary_min"]; ok {
		n := int(v.GetIntegerValue())
		md.SalaryMin = &n
	}
	if v, ok := payload["salary_max"]; ok {
		n := int(v.GetIntegerValue())
		md.SalaryMax = &n
	}
	if v, ok := payload["applied_job_ids"]; ok {
		if list := v.GetListValue(); list != nil {
			md.AppliedJobIDs = make([]string, 0, len(list.Values))
			for _, item := range list.Values {
				md.AppliedJobIDs = append(md.AppliedJobIDs, item.GetStringValue())
			}
		}
	}
	return md
}

func stringValue(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
