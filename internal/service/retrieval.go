package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// SimilarityQuerier answers ranked similarity queries over stored chunks.
// Only rows scoring strictly above minScore are returned, best first.
type SimilarityQuerier interface {
	QuerySimilar(ctx context.Context, embedding []float32, minScore float64, limit int) ([]domain.SimilarityResult, error)
}

// RetrievalConfig controls ranking cutoffs.
type RetrievalConfig struct {
	MinScore float64
	Limit    int
}

// DefaultRetrievalConfig returns the default relevance floor and result cap.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		MinScore: 0.3,
		Limit:    5,
	}
}

// RetrievalService finds stored chunks relevant to a question.
type RetrievalService struct {
	embedder Embedder
	store    SimilarityQuerier
	cfg      RetrievalConfig
	logger   *slog.Logger
}

// NewRetrievalService creates a RetrievalService with the default configuration.
func NewRetrievalService(embedder Embedder, store SimilarityQuerier, logger *slog.Logger) *RetrievalService {
	return NewRetrievalServiceWithConfig(embedder, store, DefaultRetrievalConfig(), logger)
}

// NewRetrievalServiceWithConfig creates a RetrievalService with explicit configuration.
func NewRetrievalServiceWithConfig(embedder Embedder, store SimilarityQuerier, cfg RetrievalConfig, logger *slog.Logger) *RetrievalService {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultRetrievalConfig().Limit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		logger:   logger.With("component", "retrieval"),
	}
}

// FindRelevantContent embeds the query and returns the ranked chunks above the
// relevance floor. An empty slice means nothing cleared the floor. Errors are
// domain errors; callers decide whether to degrade.
func (s *RetrievalService) FindRelevantContent(ctx context.Context, query string) ([]domain.SimilarityResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.FindRelevantContent", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "Error searching knowledge base", err)
	}

	results, err := s.store.QuerySimilar(ctx, embedding, s.cfg.MinScore, s.cfg.Limit)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "Error searching knowledge base", err)
	}
	if results == nil {
		results = []domain.SimilarityResult{}
	}

	if len(results) > 0 {
		s.logger.Debug("retrieved context", "count", len(results), "top_similarity", results[0].Similarity)
	} else {
		s.logger.Debug("no chunk cleared the relevance floor", "min_score", s.cfg.MinScore)
	}
	return results, nil
}
