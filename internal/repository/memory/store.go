// Package memory provides an in-process knowledge store computing cosine
// similarity in Go. It is used when no database is configured and in tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/pagination"
	"github.com/google/uuid"
)

// Store keeps resources and chunks in memory. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	resources map[string]*domain.Resource
	order     []string
	chunks    []*domain.EmbeddedChunk
	dims      int
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		resources: make(map[string]*domain.Resource),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a resource and returns it with a generated ID.
func (s *Store) Create(ctx context.Context, content string) (*domain.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	r := &domain.Resource{ID: uuid.NewString(), Content: content, CreatedAt: ts, UpdatedAt: ts}
	s.resources[r.ID] = r
	s.order = append(s.order, r.ID)

	out := *r
	return &out, nil
}

// GetByID returns a resource or domain.ErrResourceNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	out := *r
	return &out, nil
}

// InsertChunks stores all chunks for an existing resource, or none of them.
func (s *Store) InsertChunks(ctx context.Context, resourceID string, chunks []domain.ChunkEmbedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resourceID]; !ok {
		return domain.ErrResourceNotFound
	}

	dims := s.dims
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return domain.ErrDimensionChanged
		}
	}

	ts := s.now()
	for _, c := range chunks {
		embedding := make([]float32, len(c.Embedding))
		copy(embedding, c.Embedding)
		s.chunks = append(s.chunks, &domain.EmbeddedChunk{
			ID:         uuid.NewString(),
			ResourceID: resourceID,
			Content:    c.Content,
			Embedding:  embedding,
			CreatedAt:  ts,
		})
	}
	s.dims = dims
	return nil
}

// QuerySimilar scores every chunk by cosine similarity and returns those
// strictly above minScore, best first, at most limit rows.
func (s *Store) QuerySimilar(ctx context.Context, embedding []float32, minScore float64, limit int) ([]domain.SimilarityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims != 0 && len(embedding) != s.dims {
		return nil, domain.ErrDimensionChanged
	}

	results := make([]domain.SimilarityResult, 0)
	for _, c := range s.chunks {
		score := CosineSimilarity(embedding, c.Embedding)
		if score > minScore {
			results = append(results, domain.SimilarityResult{Content: c.Content, Similarity: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ListWithCursor pages resources newest first, ordered by (created_at, id)
// descending to match the Postgres store.
func (s *Store) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*domain.ResourcePage, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	sorted := make([]*domain.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out := *r
		sorted = append(sorted, &out)
	}
	s.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	items := make([]*domain.Resource, 0, limit+1)
	for _, r := range sorted {
		if cursor != nil && !cursor.Precedes(r.CreatedAt, r.ID) {
			continue
		}
		items = append(items, r)
		if len(items) > limit {
			break
		}
	}

	items, next, hasMore := pagination.Trim(items, limit, resourceKey)
	return &domain.ResourcePage{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

func resourceKey(r *domain.Resource) pagination.Cursor {
	return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
}

// Delete removes a resource and its chunks.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(s.resources, id)

	order := s.order[:0]
	for _, rid := range s.order {
		if rid != id {
			order = append(order, rid)
		}
	}
	s.order = order

	chunks := s.chunks[:0]
	for _, c := range s.chunks {
		if c.ResourceID != id {
			chunks = append(chunks, c)
		}
	}
	s.chunks = chunks
	return nil
}

// ListOrphans returns up to limit resources created before the cutoff that
// have no chunks, oldest first.
func (s *Store) ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make(map[string]bool, len(s.resources))
	for _, c := range s.chunks {
		owned[c.ResourceID] = true
	}

	var out []*domain.Resource
	for _, id := range s.order {
		r := *s.resources[id]
		if owned[id] || !r.CreatedAt.Before(createdBefore) {
			continue
		}
		out = append(out, &r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CountResources(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resources), nil
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// SampleResources returns the n oldest resources.
func (s *Store) SampleResources(ctx context.Context, n int) ([]*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Resource
	for _, id := range s.order {
		if len(out) >= n {
			break
		}
		r := *s.resources[id]
		out = append(out, &r)
	}
	return out, nil
}

// SampleChunks returns the n oldest chunks.
func (s *Store) SampleChunks(ctx context.Context, n int) ([]domain.ChunkSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ChunkSample
	for _, c := range s.chunks {
		if len(out) >= n {
			break
		}
		out = append(out, domain.ChunkSample{ID: c.ID, Content: c.Content, EmbeddingLength: len(c.Embedding)})
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Zero vectors and mismatched lengths score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
