package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cloo-solutions/ragchat/internal/documents"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/panjf2000/ants/v2"
)

// ResourceCreatedMessage is returned to the user after a successful submission.
const ResourceCreatedMessage = "Resource successfully created and embedded."

// Embedder turns text into vectors. EmbedMany is a single batched call whose
// output is index-aligned with its input.
type Embedder interface {
	EmbedMany(ctx context.Context, values []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, value string) ([]float32, error)
}

// ResourceRepositoryInterface persists resources.
type ResourceRepositoryInterface interface {
	Create(ctx context.Context, content string) (*domain.Resource, error)
}

// ChunkRepositoryInterface persists embedded chunks.
type ChunkRepositoryInterface interface {
	InsertChunks(ctx context.Context, resourceID string, chunks []domain.ChunkEmbedding) error
}

// DocumentSource lists and reads documents for the bulk loader.
type DocumentSource interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) ([]byte, error)
}

// IngestResult describes one successful submission.
type IngestResult struct {
	Resource   *domain.Resource
	ChunkCount int
}

// DocumentFailure records a document the bulk loader skipped.
type DocumentFailure struct {
	Name string
	Err  error
}

// BulkResult summarizes a bulk document load.
type BulkResult struct {
	Documents int
	Sections  int
	Failures  []DocumentFailure
}

// IngestionService runs chunk -> embed -> persist for new content.
type IngestionService struct {
	embedder  Embedder
	resources ResourceRepositoryInterface
	chunks    ChunkRepositoryInterface
	txRunner  TxRunner
	workers   int
	logger    *slog.Logger
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithTxRunner makes resource and chunk persistence atomic.
func WithTxRunner(runner TxRunner) IngestionOption {
	return func(s *IngestionService) {
		s.txRunner = runner
	}
}

// WithIngestWorkers sets how many documents the bulk loader processes at once.
func WithIngestWorkers(n int) IngestionOption {
	return func(s *IngestionService) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithIngestionLogger sets a custom logger.
func WithIngestionLogger(logger *slog.Logger) IngestionOption {
	return func(s *IngestionService) {
		if logger != nil {
			s.logger = logger.With("component", "ingestion")
		}
	}
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	embedder Embedder,
	resources ResourceRepositoryInterface,
	chunks ChunkRepositoryInterface,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		embedder:  embedder,
		resources: resources,
		chunks:    chunks,
		workers:   1,
		logger:    slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates, persists, chunks, embeds and stores one submission.
//
// Without a TxRunner the resource row is written before its chunks. If the
// chunk batch then fails the resource stays without chunks and a
// PARTIAL_INGESTION error is returned.
func (s *IngestionService) Ingest(ctx context.Context, content string) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}
	chunks := ChunkText(content)
	if len(chunks) == 0 {
		return nil, domain.ErrNoChunks
	}

	if s.txRunner != nil {
		result, err := s.ingestAtomic(ctx, content, chunks)
		if err != nil {
			span.SetError(err)
		}
		return result, err
	}

	resource, err := s.resources.Create(ctx, content)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to persist resource", err)
	}
	s.logger.Info("resource created", "resource_id", resource.ID, "chunks", len(chunks))
	telemetry.AddBreadcrumb(ctx, "ingestion", "resource "+resource.ID+" created")

	rows, err := s.embedChunks(ctx, chunks)
	if err != nil {
		span.SetError(err)
		s.logger.Warn("resource left without chunks", "resource_id", resource.ID, "err", err)
		return nil, err
	}

	if err := s.chunks.InsertChunks(ctx, resource.ID, rows); err != nil {
		span.SetError(err)
		s.logger.Warn("resource left without chunks", "resource_id", resource.ID, "err", err)
		telemetry.CaptureMessage(ctx, "partial ingestion: resource "+resource.ID+" stored without chunks")
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodePartialIngestion,
			fmt.Sprintf("resource %s stored without chunks", resource.ID),
			domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to persist chunks", err),
		)
	}
	s.logger.Info("chunks inserted", "resource_id", resource.ID, "count", len(rows))

	return &IngestResult{Resource: resource, ChunkCount: len(rows)}, nil
}

// ingestAtomic embeds first so the transaction only spans the two inserts.
func (s *IngestionService) ingestAtomic(ctx context.Context, content string, chunks []string) (*IngestResult, error) {
	rows, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	var resource *domain.Resource
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		created, err := repos.Resources().Create(ctx, content)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to persist resource", err)
		}
		if err := repos.Chunks().InsertChunks(ctx, created.ID, rows); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to persist chunks", err)
		}
		resource = created
		return nil
	})
	if err != nil {
		if domain.CodeOf(err) == domain.ErrCodeInternalError {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to commit resource", err)
		}
		return nil, err
	}

	s.logger.Info("resource created", "resource_id", resource.ID, "chunks", len(rows), "atomic", true)
	return &IngestResult{Resource: resource, ChunkCount: len(rows)}, nil
}

// AddResource runs Ingest and renders the outcome as user-facing text.
func (s *IngestionService) AddResource(ctx context.Context, content string) string {
	if _, err := s.Ingest(ctx, content); err != nil {
		s.logger.Error("failed to add resource", "err", err)
		return domain.UserMessage(err)
	}
	return ResourceCreatedMessage
}

// Reembed chunks, embeds and stores chunks for an existing resource.
func (s *IngestionService) Reembed(ctx context.Context, resource *domain.Resource) (int, error) {
	chunks := ChunkText(resource.Content)
	if len(chunks) == 0 {
		return 0, domain.ErrNoChunks
	}

	rows, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	if err := s.chunks.InsertChunks(ctx, resource.ID, rows); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to persist chunks", err)
	}
	return len(rows), nil
}

func (s *IngestionService) embedChunks(ctx context.Context, chunks []string) ([]domain.ChunkEmbedding, error) {
	embeddings, err := s.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to generate embeddings", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, domain.ErrEmbeddingCountMismatch
	}

	rows := make([]domain.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		rows[i] = domain.ChunkEmbedding{Content: chunk, Embedding: embeddings[i]}
	}
	return rows, nil
}

// IngestDocuments loads every document from src, ingesting each section with a
// provenance header. A failing document is logged and skipped; the rest of the
// batch continues.
func (s *IngestionService) IngestDocuments(ctx context.Context, src DocumentSource) (*BulkResult, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	var mu sync.Mutex
	record := func(name string, sections int, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Sections += sections
		if err != nil {
			s.logger.Error("document failed", "document", name, "sections_ingested", sections, "err", err)
			result.Failures = append(result.Failures, DocumentFailure{Name: name, Err: err})
			return
		}
		s.logger.Info("document ingested", "document", name, "sections", sections)
		result.Documents++
	}

	if s.workers <= 1 || len(names) <= 1 {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			n, err := s.ingestDocument(ctx, src, name)
			record(name, n, err)
		}
		return result, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			n, err := s.ingestDocument(ctx, src, name)
			record(name, n, err)
		}); err != nil {
			wg.Done()
			record(name, 0, fmt.Errorf("failed to schedule document: %w", err))
		}
	}
	wg.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Name < result.Failures[j].Name
	})
	return result, ctx.Err()
}

func (s *IngestionService) ingestDocument(ctx context.Context, src DocumentSource, name string) (int, error) {
	data, err := src.Open(ctx, name)
	if err != nil {
		return 0, err
	}

	doc, err := documents.Parse(name, data)
	if err != nil {
		return 0, err
	}

	ingested := 0
	for _, section := range doc.Sections {
		if _, err := s.Ingest(ctx, documents.WithProvenance(name, section)); err != nil {
			return ingested, fmt.Errorf("section %q: %w", section.Title, err)
		}
		ingested++
	}
	return ingested, nil
}
