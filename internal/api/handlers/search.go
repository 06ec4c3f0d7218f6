package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
)

type Retriever interface {
	FindRelevantContent(ctx context.Context, query string) ([]domain.SimilarityResult, error)
}

type SearchHandler struct {
	retriever Retriever
}

func NewSearchHandler(retriever Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Results []domain.SimilarityResult `json:"results"`
}

// Search runs the retrieval step on its own, without generation.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}
	results, err := h.retriever.FindRelevantContent(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
