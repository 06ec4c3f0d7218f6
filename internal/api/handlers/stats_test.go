package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler_Stats(t *testing.T) {
	mockSvc := new(MockStatsService)
	handler := NewStatsHandler(mockSvc)

	mockSvc.On("Stats", mock.Anything).Return(&domain.StoreStats{
		ResourceCount:   1,
		ChunkCount:      2,
		SampleResources: []*domain.Resource{{ID: "r-1", Content: "pizza. pasta."}},
		SampleChunks: []domain.ChunkSample{
			{ID: "c-1", Content: "pizza", EmbeddingLength: 1536},
			{ID: "c-2", Content: "pasta", EmbeddingLength: 1536},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.ResourceCount)
	assert.Equal(t, 2, resp.Data.ChunkCount)
	assert.Len(t, resp.Data.SampleChunks, 2)
	assert.Equal(t, 1536, resp.Data.SampleChunks[0].EmbeddingLength)
	assert.Contains(t, resp.Data.Summary, "Found 1 resources and 2 embeddings")
}

func TestStatsHandler_StorageError(t *testing.T) {
	mockSvc := new(MockStatsService)
	handler := NewStatsHandler(mockSvc)

	mockSvc.On("Stats", mock.Anything).Return(nil,
		domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to count resources", errors.New("conn closed")))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
