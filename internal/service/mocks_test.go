package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedMany(ctx context.Context, values []string) ([][]float32, error) {
	args := m.Called(ctx, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, value string) ([]float32, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockResourceRepository is a mock implementation of ResourceRepositoryInterface
// and ResourceStoreInterface
type MockResourceRepository struct {
	mock.Mock
}

func (m *MockResourceRepository) Create(ctx context.Context, content string) (*domain.Resource, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *MockResourceRepository) GetByID(ctx context.Context, id string) (*domain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *MockResourceRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*domain.ResourcePage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourcePage), args.Error(1)
}

func (m *MockResourceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) InsertChunks(ctx context.Context, resourceID string, chunks []domain.ChunkEmbedding) error {
	args := m.Called(ctx, resourceID, chunks)
	return args.Error(0)
}

// MockSimilarityQuerier is a mock implementation of SimilarityQuerier
type MockSimilarityQuerier struct {
	mock.Mock
}

func (m *MockSimilarityQuerier) QuerySimilar(ctx context.Context, embedding []float32, minScore float64, limit int) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, embedding, minScore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepositoryInterface
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) CountResources(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) CountChunks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepository) SampleResources(ctx context.Context, n int) ([]*domain.Resource, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Resource), args.Error(1)
}

func (m *MockStatsRepository) SampleChunks(ctx context.Context, n int) ([]domain.ChunkSample, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkSample), args.Error(1)
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Stream(ctx context.Context, req domain.GenerationRequest) (domain.TokenStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.TokenStream), args.Error(1)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) FindRelevantContent(ctx context.Context, query string) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

type MockAdder struct {
	mock.Mock
}

func (m *MockAdder) AddResource(ctx context.Context, content string) string {
	return m.Called(ctx, content).String(0)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summary(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

// fakeSource serves documents from memory.
type fakeSource struct {
	docs map[string]string
	mu   sync.Mutex
	open []string
}

func (f *fakeSource) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.docs))
	for name := range f.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeSource) Open(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.open = append(f.open, name)
	f.mu.Unlock()

	doc, ok := f.docs[name]
	if !ok {
		return nil, fmt.Errorf("no such document %s", name)
	}
	return []byte(doc), nil
}

// keywordEmbedder maps text onto a small vocabulary so similar sentences land
// near each other.
type keywordEmbedder struct {
	vocab []string
}

func (e *keywordEmbedder) vector(text string) []float32 {
	text = strings.ToLower(text)
	v := make([]float32, len(e.vocab)+1)
	for i, w := range e.vocab {
		if strings.Contains(text, w) {
			v[i] = 1
		}
	}
	v[len(e.vocab)] = 0.01
	return v
}

func (e *keywordEmbedder) EmbedMany(ctx context.Context, values []string) ([][]float32, error) {
	out := make([][]float32, len(values))
	for i, s := range values {
		out[i] = e.vector(s)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(ctx context.Context, value string) ([]float32, error) {
	return e.vector(value), nil
}

// collect reads a stream to the end.
func collect(s domain.TokenStream) (string, error) {
	var b strings.Builder
	for {
		tok, err := s.Recv()
		if err == io.EOF {
			return b.String(), s.Close()
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(tok)
	}
}
