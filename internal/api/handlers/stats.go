package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
)

type StatsService interface {
	Stats(ctx context.Context) (*domain.StoreStats, error)
}

type StatsHandler struct {
	svc StatsService
}

func NewStatsHandler(svc StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

type ChunkSampleResponse struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	EmbeddingLength int    `json:"embedding_length"`
}

type StatsResponse struct {
	ResourceCount   int                    `json:"resource_count"`
	ChunkCount      int                    `json:"chunk_count"`
	SampleResources []*ResourceResponse    `json:"sample_resources"`
	SampleChunks    []*ChunkSampleResponse `json:"sample_chunks"`
	Summary         string                 `json:"summary"`
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := StatsResponse{
		ResourceCount:   stats.ResourceCount,
		ChunkCount:      stats.ChunkCount,
		SampleResources: make([]*ResourceResponse, len(stats.SampleResources)),
		SampleChunks:    make([]*ChunkSampleResponse, len(stats.SampleChunks)),
		Summary:         service.FormatStats(stats),
	}
	for i, res := range stats.SampleResources {
		resp.SampleResources[i] = toResourceResponse(res)
	}
	for i, c := range stats.SampleChunks {
		resp.SampleChunks[i] = &ChunkSampleResponse{ID: c.ID, Content: c.Content, EmbeddingLength: c.EmbeddingLength}
	}

	api.Success(w, http.StatusOK, resp)
}
