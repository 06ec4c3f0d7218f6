package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ResourceRepository struct {
	db dbtx
}

func NewResourceRepository(pool *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{db: pool}
}

func NewResourceRepositoryWithTx(tx pgx.Tx) *ResourceRepository {
	return &ResourceRepository{db: tx}
}

// Create inserts a resource and returns it with its generated ID and timestamps.
func (r *ResourceRepository) Create(ctx context.Context, content string) (*domain.Resource, error) {
	var res domain.Resource
	err := r.db.QueryRow(ctx,
		`INSERT INTO resources (content) VALUES ($1)
		 RETURNING id, content, created_at, updated_at`,
		content,
	).Scan(&res.ID, &res.Content, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	var res domain.Resource
	err := r.db.QueryRow(ctx,
		`SELECT id, content, created_at, updated_at FROM resources WHERE id = $1`,
		id,
	).Scan(&res.ID, &res.Content, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListWithCursor pages resources newest first.
func (r *ResourceRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*domain.ResourcePage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, content, created_at, updated_at
			 FROM resources
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.CreatedAt, cursor.ID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, content, created_at, updated_at
			 FROM resources
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanResourceRows(rows)
	if err != nil {
		return nil, err
	}

	items, next, hasMore := pagination.Trim(items, limit, func(res *domain.Resource) pagination.Cursor {
		return pagination.Cursor{CreatedAt: res.CreatedAt, ID: res.ID}
	})

	return &domain.ResourcePage{
		Items:      items,
		NextCursor: next,
		HasMore:    hasMore,
	}, nil
}

// Delete removes a resource. Its chunks go with it via ON DELETE CASCADE.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

// ListOrphans returns resources created before the cutoff that have no chunks.
func (r *ResourceRepository) ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Resource, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.content, r.created_at, r.updated_at
		 FROM resources r
		 WHERE r.created_at < $1
		   AND NOT EXISTS (SELECT 1 FROM embeddings e WHERE e.resource_id = r.id)
		 ORDER BY r.created_at ASC
		 LIMIT $2`,
		createdBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceRows(rows)
}

func scanResourceRows(rows pgx.Rows) ([]*domain.Resource, error) {
	items := make([]*domain.Resource, 0)
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.Content, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &res)
	}
	return items, rows.Err()
}
