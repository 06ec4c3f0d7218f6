package repository

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner scopes a resource write and its chunk writes to one Postgres
// transaction. The transaction commits when fn returns nil.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	err := pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(ingestTx{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("ingest transaction: %w", err)
	}
	return nil
}

type ingestTx struct {
	tx pgx.Tx
}

func (t ingestTx) Resources() service.ResourceRepositoryInterface {
	return NewResourceRepositoryWithTx(t.tx)
}

func (t ingestTx) Chunks() service.ChunkRepositoryInterface {
	return NewEmbeddingRepositoryWithTx(t.tx)
}
