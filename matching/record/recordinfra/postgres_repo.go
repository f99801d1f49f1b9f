package recordinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// PostgresRecordRepository is the relational side of the dual store. One
// table holds both namespaces; (namespace, source_id) is unique.
type PostgresRecordRepository struct {
	db *sqlx.DB
}

func NewPostgresRecordRepository(db *sqlx.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

type recordRow struct {
	ID            string          `db:"id"`
	Namespace     string          `db:"namespace"`
	OwnerID       string          `db:"owner_id"`
	SourceID      string          `db:"source_id"`
	Content       string          `db:"content"`
	Embedding     pgvector.Vector `db:"embedding"`
	Country       sql.NullString  `db:"country"`
	Profession    sql.NullString  `db:"profession"`
	WorkType      sql.NullString  `db:"work_type"`
	SalaryMin     sql.NullInt64   `db:"salary_min"`
	SalaryMax     sql.NullInt64   `db:"salary_max"`
	Title         sql.NullString  `db:"title"`
	CompanyName   sql.NullString  `db:"company_name"`
	AppliedJobIDs pq.StringArray  `db:"applied_job_ids"`
	Active        bool            `db:"active"`
	SourceURL     sql.NullString  `db:"source_url"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toRow(rec *record.EmbeddingRecord) recordRow {
	row := recordRow{
		ID:            rec.ID.String(),
		Namespace:     string(rec.Namespace),
		OwnerID:       rec.OwnerID,
		SourceID:      rec.SourceID,
		Content:       rec.Content,
		Embedding:     pgvector.NewVector(rec.Vector),
		Country:       nullString(rec.Metadata.Country),
		Profession:    nullString(rec.Metadata.Profession),
		WorkType:      nullString(string(rec.Metadata.WorkType)),
		Title:         nullString(rec.Metadata.Title),
		CompanyName:   nullString(rec.Metadata.CompanyName),
		AppliedJobIDs: pq.StringArray(rec.Metadata.AppliedJobIDs),
		Active:        rec.Metadata.Active,
		SourceURL:     nullString(rec.Metadata.SourceURL),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if rec.Metadata.SalaryMin != nil {
		row.SalaryMin = sql.NullInt64{Int64: int64(*rec.Metadata.SalaryMin), Valid: true}
	}
	if rec.Metadata.SalaryMax != nil {
		row.SalaryMax = sql.NullInt64{Int64: int64(*rec.Metadata.SalaryMax), Valid: true}
	}
	if row.AppliedJobIDs == nil {
		row.AppliedJobIDs = pq.StringArray{}
	}
	return row
}

func (row *recordRow) toDomain() *record.EmbeddingRecord {
	md := record.Metadata{
		Country:       row.Country.String,
		Profession:    row.Profession.String,
		WorkType:      record.WorkType(row.WorkType.String),
		Title:         row.Title.String,
		CompanyName:   row.CompanyName.String,
		AppliedJobIDs: []string(row.AppliedJobIDs),
		Active:        row.Active,
		SourceURL:     row.SourceURL.String,
	}
	if row.SalaryMin.Valid {
		v := int(row.SalaryMin.Int64)
		md.SalaryMin = &v
	}
	if row.SalaryMax.Valid {
		v := int(row.SalaryMax.Int64)
		md.SalaryMax = &v
	}
	if md.AppliedJobIDs == nil {
		md.AppliedJobIDs = []string{}
	}

	return &record.EmbeddingRecord{
		ID:        kernel.NewRecordID(row.ID),
		Namespace: record.Namespace(row.Namespace),
		OwnerID:   row.OwnerID,
		SourceID:  row.SourceID,
		Content:   row.Content,
		Vector:    row.Embedding.Slice(),
		Metadata:  md,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const recordColumns = `id, namespace, owner_id, source_id, content, embedding,
	country, profession, work_type, salary_min, salary_max, title, company_name,
	applied_job_ids, active, source_url, created_at, updated_at`

// Create inserts a new embedding record
func (r *PostgresRecordRepository) Create(ctx context.Context, rec *record.EmbeddingRecord) error {
	query := `
		INSERT INTO embedding_records (` + recordColumns + `)
		VALUES (:id, :namespace, :owner_id, :source_id, :content, :embedding,
			:country, :profession, :work_type, :salary_min, :salary_max, :title, :company_name,
			:applied_job_ids, :active, :source_url, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, query, toRow(rec))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return record.ErrRecordExists().
				WithDetail("namespace", rec.Namespace).
				WithDetail("source_id", rec.SourceID)
		}
		return record.ErrStoreFailed(err).
			WithDetail("source_id", rec.SourceID).
			WithDetail("operation", "insert")
	}
	return nil
}

// Update replaces content, vector and metadata for an existing record
func (r *PostgresRecordRepository) Update(ctx context.Context, rec *record.EmbeddingRecord) error {
	query := `
		UPDATE embedding_records SET
			content = :content,
			embedding = :embedding,
			country = :country,
			profession = :profession,
			work_type = :work_type,
			salary_min = :salary_min,
			salary_max = :salary_max,
			title = :title,
			company_name = :company_name,
			applied_job_ids = :applied_job_ids,
			active = :active,
			source_url = :source_url,
			updated_at = :updated_at
		WHERE namespace = :namespace AND source_id = :source_id`

	row := toRow(rec)
	row.UpdatedAt = time.Now()

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return record.ErrStoreFailed(err).
			WithDetail("source_id", rec.SourceID).
			WithDetail("operation", "update")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrRecordNotFound().
			WithDetail("namespace", rec.Namespace).
			WithDetail("source_id", rec.SourceID)
	}
	return nil
}

// GetBySourceID retrieves the record for a resume id or job id
func (r *PostgresRecordRepository) GetBySourceID(ctx context.Context, ns record.Namespace, sourceID string) (*record.EmbeddingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM embedding_records WHERE namespace = $1 AND source_id = $2`

	var row recordRow
	if err := r.db.GetContext(ctx, &row, query, string(ns), sourceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, record.ErrRecordNotFound().
				WithDetail("namespace", ns).
				WithDetail("source_id", sourceID)
		}
		return nil, record.ErrStoreFailed(err).WithDetail("source_id", sourceID)
	}
	return row.toDomain(), nil
}

// ListByOwnerID retrieves all records owned by a seeker or company
func (r *PostgresRecordRepository) ListByOwnerID(ctx context.Context, ns record.Namespace, ownerID string) ([]*record.EmbeddingRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM embedding_records
		WHERE namespace = $1 AND owner_id = $2 ORDER BY created_at`

	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, string(ns), ownerID); err != nil {
		return nil, record.ErrStoreFailed(err).WithDetail("owner_id", ownerID)
	}

	recs := make([]*record.EmbeddingRecord, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].toDomain())
	}
	return recs, nil
}

// SetActive flips the active flag
func (r *PostgresRecordRepository) SetActive(ctx context.Context, ns record.Namespace, sourceID string, active bool) error {
	query := `UPDATE embedding_records SET active = $3, updated_at = NOW()
		WHERE namespace = $1 AND source_id = $2`

	result, err := r.db.ExecContext(ctx, query, string(ns), sourceID, active)
	if err != nil {
		return record.ErrStoreFailed(err).WithDetail("source_id", sourceID)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrRecordNotFound().
			WithDetail("namespace", ns).
			WithDetail("source_id", sourceID)
	}
	return nil
}

// AddAppliedJob appends jobID to the applied list in one statement, so
// concurrent appends cannot lose each other. Re-appending is a no-op.
func (r *PostgresRecordRepository) AddAppliedJob(ctx context.Context, resumeID, jobID string) error {
	query := `
		UPDATE embedding_records SET
			applied_job_ids = CASE
				WHEN $2 = ANY(applied_job_ids) THEN applied_job_ids
				ELSE array_append(applied_job_ids, $2)
			END,
			updated_at = NOW()
		WHERE namespace = 'resumes' AND source_id = $1`

	result, err := r.db.ExecContext(ctx, query, resumeID, jobID)
	if err != nil {
		return record.ErrStoreFailed(err).
			WithDetail("resume_id", resumeID).
			WithDetail("job_id", jobID)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrRecordNotFound().WithDetail("source_id", resumeID)
	}
	return nil
}

// RemoveAppliedJob removes jobID from the applied list
func (r *PostgresRecordRepository) RemoveAppliedJob(ctx context.Context, resumeID, jobID string) error {
	query := `
		UPDATE embedding_records SET
			applied_job_ids = array_remove(applied_job_ids, $2),
			updated_at = NOW()
		WHERE namespace = 'resumes' AND source_id = $1`

	result, err := r.db.ExecContext(ctx, query, resumeID, jobID)
	if err != nil {
		return record.ErrStoreFailed(err).
			WithDetail("resume_id", resumeID).
			WithDetail("job_id", jobID)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrRecordNotFound().WithDetail("source_id", resumeID)
	}
	return nil
}

// Delete removes the record
func (r *PostgresRecordRepository) Delete(ctx context.Context, ns record.Namespace, sourceID string) error {
	query := `DELETE FROM embedding_records WHERE namespace = $1 AND source_id = $2`

	result, err := r.db.ExecContext(ctx, query, string(ns), sourceID)
	if err != nil {
		return record.ErrStoreFailed(err).WithDetail("source_id", sourceID)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return record.ErrRecordNotFound().
			WithDetail("namespace", ns).
			WithDetail("source_id", sourceID)
	}
	return nil
}
