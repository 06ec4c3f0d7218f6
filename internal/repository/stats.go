package repository

import (
	"context"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository reads store counts and samples for diagnostics.
type StatsRepository struct {
	db dbtx
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: pool}
}

func (r *StatsRepository) CountResources(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM resources`)
}

func (r *StatsRepository) CountChunks(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM embeddings`)
}

func (r *StatsRepository) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *StatsRepository) SampleResources(ctx context.Context, n int) ([]*domain.Resource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, content, created_at, updated_at FROM resources ORDER BY created_at ASC LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

func (r *StatsRepository) SampleChunks(ctx context.Context, n int) ([]domain.ChunkSample, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, content, vector_dims(embedding) FROM embeddings ORDER BY created_at ASC LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChunkSample, 0)
	for rows.Next() {
		var s domain.ChunkSample
		if err := rows.Scan(&s.ID, &s.Content, &s.EmbeddingLength); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
