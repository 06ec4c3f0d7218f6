package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i + 1), 0, 0}
	}
	return out
}

func TestIngestionService_Ingest_Success(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	svc := NewIngestionService(embedder, resources, chunks)

	ctx := context.Background()
	content := "The sky is blue. Grass is green."
	resource := &domain.Resource{ID: "res-1", Content: content}

	resources.On("Create", mock.Anything, content).Return(resource, nil)
	embedder.On("EmbedMany", mock.Anything, []string{"The sky is blue", "Grass is green"}).Return(fixedVectors(2), nil)
	chunks.On("InsertChunks", mock.Anything, "res-1", mock.MatchedBy(func(rows []domain.ChunkEmbedding) bool {
		return len(rows) == 2 &&
			rows[0].Content == "The sky is blue" &&
			rows[1].Content == "Grass is green" &&
			rows[1].Embedding[0] == 2
	})).Return(nil)

	result, err := svc.Ingest(ctx, content)

	require.NoError(t, err)
	assert.Equal(t, "res-1", result.Resource.ID)
	assert.Equal(t, 2, result.ChunkCount)
	embedder.AssertNumberOfCalls(t, "EmbedMany", 1)
	resources.AssertExpectations(t)
	chunks.AssertExpectations(t)
}

func TestIngestionService_Ingest_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty", "", domain.ErrEmptyContent},
		{"whitespace", "   \n\t", domain.ErrEmptyContent},
		{"only periods", "...", domain.ErrNoChunks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := new(MockEmbedder)
			resources := new(MockResourceRepository)
			chunks := new(MockChunkRepository)
			svc := NewIngestionService(embedder, resources, chunks)

			result, err := svc.Ingest(context.Background(), tt.content)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
			resources.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			embedder.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
		})
	}
}

func TestIngestionService_Ingest_ResourceStorageError(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	svc := NewIngestionService(embedder, resources, chunks)

	resources.On("Create", mock.Anything, "Hello").Return(nil, errors.New("connection refused"))

	result, err := svc.Ingest(context.Background(), "Hello")

	assert.Nil(t, result)
	assert.Equal(t, domain.ErrCodeStorage, domain.CodeOf(err))
	embedder.AssertNotCalled(t, "EmbedMany", mock.Anything, mock.Anything)
	chunks.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_EmbeddingError(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	svc := NewIngestionService(embedder, resources, chunks)

	resources.On("Create", mock.Anything, "Hello").Return(&domain.Resource{ID: "res-1"}, nil)
	embedder.On("EmbedMany", mock.Anything, []string{"Hello"}).Return(nil, errors.New("rate limited"))

	result, err := svc.Ingest(context.Background(), "Hello")

	assert.Nil(t, result)
	assert.Equal(t, domain.ErrCodeEmbedding, domain.CodeOf(err))
	chunks.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_EmbeddingCountMismatch(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	svc := NewIngestionService(embedder, resources, chunks)

	resources.On("Create", mock.Anything, "A. B").Return(&domain.Resource{ID: "res-1"}, nil)
	embedder.On("EmbedMany", mock.Anything, []string{"A", "B"}).Return(fixedVectors(1), nil)

	_, err := svc.Ingest(context.Background(), "A. B")

	assert.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)
	chunks.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_PartialIngestion(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	svc := NewIngestionService(embedder, resources, chunks)

	resources.On("Create", mock.Anything, "Hello").Return(&domain.Resource{ID: "res-1"}, nil)
	embedder.On("EmbedMany", mock.Anything, []string{"Hello"}).Return(fixedVectors(1), nil)
	chunks.On("InsertChunks", mock.Anything, "res-1", mock.Anything).Return(errors.New("disk full"))

	result, err := svc.Ingest(context.Background(), "Hello")

	assert.Nil(t, result)
	assert.Equal(t, domain.ErrCodePartialIngestion, domain.CodeOf(err))
	assert.Contains(t, err.Error(), "res-1")
	assert.Contains(t, err.Error(), "disk full")
}

func TestIngestionService_Ingest_Atomic(t *testing.T) {
	embedder := new(MockEmbedder)
	resources := new(MockResourceRepository)
	chunks := new(MockChunkRepository)
	txResources := new(MockResourceRepository)
	txChunks := new(MockChunkRepository)
	runner := &testTxRunner{repos: &testTxRepos{resources: txResources, chunks: txChunks}}
	svc := NewIngestionService(embedder, resources, chunks, WithTxRunner(runner))

	embedder.On("EmbedMany", mock.Anything, []string{"Hello"}).Return(fixedVectors(1), nil)
	txResources.On("Create", mock.Anything, "Hello").Return(&domain.Resource{ID: "res-1"}, nil)
	txChunks.On("InsertChunks", mock.Anything, "res-1", mock.Anything).Return(nil)

	result, err := svc.Ingest(context.Background(), "Hello")

	require.NoError(t, err)
	assert.True(t, runner.called)
	assert.Equal(t, 1, result.ChunkCount)
	resources.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	chunks.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_AtomicEmbeddingFailureWritesNothing(t *testing.T) {
	embedder := new(MockEmbedder)
	txResources := new(MockResourceRepository)
	txChunks := new(MockChunkRepository)
	runner := &testTxRunner{repos: &testTxRepos{resources: txResources, chunks: txChunks}}
	svc := NewIngestionService(embedder, nil, nil, WithTxRunner(runner))

	embedder.On("EmbedMany", mock.Anything, []string{"Hello"}).Return(nil, errors.New("timeout"))

	_, err := svc.Ingest(context.Background(), "Hello")

	assert.Equal(t, domain.ErrCodeEmbedding, domain.CodeOf(err))
	assert.False(t, runner.called)
	txResources.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestionService_Ingest_AtomicChunkFailureIsStorageError(t *testing.T) {
	embedder := new(MockEmbedder)
	txResources := new(MockResourceRepository)
	txChunks := new(MockChunkRepository)
	runner := &testTxRunner{repos: &testTxRepos{resources: txResources, chunks: txChunks}}
	svc := NewIngestionService(embedder, nil, nil, WithTxRunner(runner))

	embedder.On("EmbedMany", mock.Anything, []string{"Hello"}).Return(fixedVectors(1), nil)
	txResources.On("Create", mock.Anything, "Hello").Return(&domain.Resource{ID: "res-1"}, nil)
	txChunks.On("InsertChunks", mock.Anything, "res-1", mock.Anything).Return(errors.New("constraint"))

	_, err := svc.Ingest(context.Background(), "Hello")

	assert.Equal(t, domain.ErrCodeStorage, domain.CodeOf(err))
}

func TestIngestionService_AddResource(t *testing.T) {
	store := memory.NewStore()
	svc := NewIngestionService(&keywordEmbedder{vocab: []string{"sky"}}, store, store)

	assert.Equal(t, ResourceCreatedMessage, svc.AddResource(context.Background(), "The sky is blue."))

	msg := svc.AddResource(context.Background(), "")
	assert.Equal(t, "content cannot be empty", msg)
}

func TestIngestionService_Reembed(t *testing.T) {
	store := memory.NewStore()
	svc := NewIngestionService(&keywordEmbedder{vocab: []string{"sky", "grass"}}, store, store)

	res, err := store.Create(context.Background(), "Sky. Grass")
	require.NoError(t, err)

	n, err := svc.Reembed(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, _ := store.CountChunks(context.Background())
	assert.Equal(t, 2, count)
}

func TestIngestionService_IngestDocuments_IsolatesFailures(t *testing.T) {
	for _, workers := range []int{1, 4} {
		store := memory.NewStore()
		svc := NewIngestionService(&keywordEmbedder{vocab: []string{"deploy", "rollback"}}, store, store, WithIngestWorkers(workers))

		src := &fakeSource{docs: map[string]string{
			"a.md": "# Deploy\nRun make deploy.\n\n# Rollback\nRun make rollback.\n",
			"b.md": "\xff\xfe not utf8",
			"c.md": "# Overview\nThe service deploys nightly.\n",
		}}

		result, err := svc.IngestDocuments(context.Background(), src)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Documents, "workers=%d", workers)
		assert.Equal(t, 3, result.Sections, "workers=%d", workers)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "b.md", result.Failures[0].Name)
		assert.ErrorIs(t, result.Failures[0].Err, domain.ErrInvalidEncoding)

		rc, _ := store.CountResources(context.Background())
		assert.Equal(t, 3, rc)

		hits, err := store.QuerySimilar(context.Background(), []float32{0, 1, 0.01}, 0.3, 5)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Contains(t, hits[0].Content, "rollback")
	}
}

func TestIngestionService_IngestDocuments_ProvenanceHeader(t *testing.T) {
	store := memory.NewStore()
	svc := NewIngestionService(&keywordEmbedder{vocab: []string{"x"}}, store, store)

	src := &fakeSource{docs: map[string]string{"guide.txt": "# Intro\nHello there\n"}}

	result, err := svc.IngestDocuments(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)

	page, err := store.ListWithCursor(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Source: guide.txt\nSection: Intro\n\nHello there", page.Items[0].Content)
}

func TestIngestionService_IngestDocuments_EmptyDocumentFails(t *testing.T) {
	store := memory.NewStore()
	svc := NewIngestionService(&keywordEmbedder{}, store, store)

	src := &fakeSource{docs: map[string]string{"empty.md": "   \n\n"}}

	result, err := svc.IngestDocuments(context.Background(), src)
	require.NoError(t, err)
	assert.Zero(t, result.Documents)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, domain.ErrEmptyDocument)
}
