package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"truematch-funnel/internal/domain"
)

// ShortlistRepository entrega los candidatos del día ordenados por
// cercanía al vector de preferencias del usuario.
type ShortlistRepository interface {
	SavePreferenceVector(ctx context.Context, email string, vec pgvector.Vector) error
	TopMatches(ctx context.Context, email string, k int) ([]domain.MatchProfile, error)
	RecordDecision(ctx context.Context, email, profileID, action string) error
}

// PgShortlistRepository implementa ShortlistRepository sobre pgvector.
type PgShortlistRepository struct {
	pool *pgxpool.Pool
}

func NewPgShortlistRepository(pool *pgxpool.Pool) *PgShortlistRepository {
	return &PgShortlistRepository{pool: pool}
}

func (r *PgShortlistRepository) SavePreferenceVector(ctx context.Context, email string, vec pgvector.Vector) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO preference_vectors (email, embedding)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET embedding = EXCLUDED.embedding`,
		email, vec,
	)
	return err
}

func (r *PgShortlistRepository) TopMatches(ctx context.Context, email string, k int) ([]domain.MatchProfile, error) {
	if k <= 0 {
		k = 5
	}
	const query = `
		SELECT p.id, p.name, p.age, p.bio, p.embedding <=> v.embedding AS distance
		FROM match_profiles p, preference_vectors v
		WHERE v.email = $1
		  AND p.id NOT IN (SELECT profile_id FROM shortlist_decisions WHERE email = $1)
		ORDER BY p.embedding <=> v.embedding
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, email, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MatchProfile
	for rows.Next() {
		var m domain.MatchProfile
		if err := rows.Scan(&m.ID, &m.Name, &m.Age, &m.Bio, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PgShortlistRepository) RecordDecision(ctx context.Context, email, profileID, action string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO shortlist_decisions (email, profile_id, action, decided_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (email, profile_id) DO UPDATE SET action = EXCLUDED.action, decided_at = NOW()`,
		email, profileID, action,
	)
	return err
}
