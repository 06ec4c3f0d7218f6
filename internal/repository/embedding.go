package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingRepository stores chunk embeddings and answers similarity queries.
type EmbeddingRepository struct {
	db dbtx
}

func NewEmbeddingRepository(pool *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: pool}
}

func NewEmbeddingRepositoryWithTx(tx pgx.Tx) *EmbeddingRepository {
	return &EmbeddingRepository{db: tx}
}

// InsertChunks writes every chunk of a resource in one batch. The batch runs
// as a single implicit transaction, so either all rows land or none do.
func (r *EmbeddingRepository) InsertChunks(ctx context.Context, resourceID string, chunks []domain.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO embeddings (resource_id, content, embedding) VALUES ($1, $2, $3)`,
			resourceID, c.Content, pgvector.NewVector(c.Embedding),
		)
	}

	br := r.db.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapChunkError(err)
		}
	}
	return mapChunkError(br.Close())
}

// QuerySimilar ranks chunks by cosine similarity, keeping those strictly above minScore.
func (r *EmbeddingRepository) QuerySimilar(ctx context.Context, embedding []float32, minScore float64, limit int) ([]domain.SimilarityResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT content, 1 - (embedding <=> $1) AS similarity
		 FROM embeddings
		 WHERE 1 - (embedding <=> $1) > $2
		 ORDER BY similarity DESC
		 LIMIT $3`,
		pgvector.NewVector(embedding), minScore, limit,
	)
	if err != nil {
		return nil, mapChunkError(err)
	}
	defer rows.Close()

	results := make([]domain.SimilarityResult, 0)
	for rows.Next() {
		var res domain.SimilarityResult
		if err := rows.Scan(&res.Content, &res.Similarity); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, mapChunkError(err)
	}
	return results, nil
}

func mapChunkError(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case pgForeignKeyViolation:
		return domain.ErrResourceNotFound
	case pgDataException:
		return fmt.Errorf("%w: %v", domain.ErrDimensionChanged, err)
	}
	return err
}
