package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/pagination"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestService interface {
	Ingest(ctx context.Context, content string) (*service.IngestResult, error)
}

type ResourceService interface {
	Get(ctx context.Context, id string) (*domain.Resource, error)
	List(ctx context.Context, cursor string, limit int) (*domain.ResourcePage, error)
	Delete(ctx context.Context, id string) error
}

type ResourceHandler struct {
	ingest    IngestService
	resources ResourceService
}

func NewResourceHandler(ingest IngestService, resources ResourceService) *ResourceHandler {
	return &ResourceHandler{ingest: ingest, resources: resources}
}

type CreateResourceRequest struct {
	Content string `json:"content"`
}

type CreateResourceResponse struct {
	ID         string `json:"id"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

type ResourceResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResourceResponse(r *domain.Resource) *ResourceResponse {
	return &ResourceResponse{
		ID:        r.ID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.ingest.Ingest(r.Context(), req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateResourceResponse{
		ID:         result.Resource.ID,
		ChunkCount: result.ChunkCount,
		Message:    service.ResourceCreatedMessage,
	})
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.HandleError(w, domain.NewDomainError(domain.ErrCodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	page, err := h.resources.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ResourceResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = toResourceResponse(item)
	}

	api.Success(w, http.StatusOK, pagination.PageResult[*ResourceResponse]{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	resource, err := h.resources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, toResourceResponse(resource))
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.resources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
