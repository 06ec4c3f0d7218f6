package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const (
	sampleResourceCount = 3
	sampleChunkCount    = 2
	samplePreviewRunes  = 80
)

// StatsRepositoryInterface exposes store counts and samples for diagnostics.
type StatsRepositoryInterface interface {
	CountResources(ctx context.Context) (int, error)
	CountChunks(ctx context.Context) (int, error)
	SampleResources(ctx context.Context, n int) ([]*domain.Resource, error)
	SampleChunks(ctx context.Context, n int) ([]domain.ChunkSample, error)
}

// StatsService builds the knowledge store diagnostic.
type StatsService struct {
	repo StatsRepositoryInterface
}

func NewStatsService(repo StatsRepositoryInterface) *StatsService {
	return &StatsService{repo: repo}
}

// Stats collects counts and a few samples from the store.
func (s *StatsService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	resourceCount, err := s.repo.CountResources(ctx)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to count resources", err)
	}
	chunkCount, err := s.repo.CountChunks(ctx)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to count embeddings", err)
	}

	stats := &domain.StoreStats{
		ResourceCount: resourceCount,
		ChunkCount:    chunkCount,
	}

	if resourceCount > 0 {
		stats.SampleResources, err = s.repo.SampleResources(ctx, sampleResourceCount)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to sample resources", err)
		}
	}
	if chunkCount > 0 {
		stats.SampleChunks, err = s.repo.SampleChunks(ctx, sampleChunkCount)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to sample embeddings", err)
		}
	}

	return stats, nil
}

// Summary renders Stats as text for the chat transcript.
func (s *StatsService) Summary(ctx context.Context) string {
	stats, err := s.Stats(ctx)
	if err != nil {
		return "Debug failed: " + domain.UserMessage(err)
	}
	return FormatStats(stats)
}

// FormatStats renders store stats as plain text.
func FormatStats(stats *domain.StoreStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d resources and %d embeddings", stats.ResourceCount, stats.ChunkCount)

	if len(stats.SampleResources) > 0 {
		b.WriteString("\n\nSample resources:")
		for _, r := range stats.SampleResources {
			fmt.Fprintf(&b, "\n- %s: %s", r.ID, preview(r.Content))
		}
	}
	if len(stats.SampleChunks) > 0 {
		b.WriteString("\n\nSample embeddings:")
		for _, c := range stats.SampleChunks {
			fmt.Fprintf(&b, "\n- %s: %s (%d dims)", c.ID, preview(c.Content), c.EmbeddingLength)
		}
	}
	return b.String()
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= samplePreviewRunes {
		return s
	}
	return string(runes[:samplePreviewRunes]) + "..."
}
