package recordinfra

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// PostgresProfileStore reads the seeker profile fields the matcher needs.
// The profiles table is owned by the accounts subsystem; this adapter only
// reads it.
type PostgresProfileStore struct {
	db *sqlx.DB
}

func NewPostgresProfileStore(db *sqlx.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) GetSeekerProfile(ctx context.Context, seekerID kernel.SeekerID) (*record.SeekerProfile, error) {
	query := `SELECT seeker_id, COALESCE(country, '') AS country, COALESCE(profession, '') AS profession
		FROM seeker_profiles WHERE seeker_id = $1`

	var profile record.SeekerProfile
	if err := s.db.GetContext(ctx, &profile, query, seekerID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, record.ErrSourceNotFound().
				WithDetail("seeker_id", seekerID.String())
		}
		return nil, record.ErrStoreFailed(err).
			WithDetail("seeker_id", seekerID.String())
	}
	return &profile, nil
}
