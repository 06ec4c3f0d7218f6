package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSearchHandler_Search(t *testing.T) {
	retriever := new(MockRetriever)
	handler := NewSearchHandler(retriever)

	retriever.On("FindRelevantContent", mock.Anything, "favorite food").Return([]domain.SimilarityResult{
		{Content: "My favorite food is pizza", Similarity: 0.82},
	}, nil)

	req := jsonRequest(http.MethodPost, "/search", `{"query":"favorite food"}`)
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data SearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.InDelta(t, 0.82, resp.Data.Results[0].Similarity, 1e-9)
}

func TestSearchHandler_EmptyResultsIsArray(t *testing.T) {
	retriever := new(MockRetriever)
	handler := NewSearchHandler(retriever)

	retriever.On("FindRelevantContent", mock.Anything, "weather").Return([]domain.SimilarityResult{}, nil)

	req := jsonRequest(http.MethodPost, "/search", `{"query":"weather"}`)
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"results":[]}}`, w.Body.String())
}

func TestSearchHandler_EmptyQuery(t *testing.T) {
	retriever := new(MockRetriever)
	handler := NewSearchHandler(retriever)

	retriever.On("FindRelevantContent", mock.Anything, "").Return(nil, domain.ErrEmptyQuery)

	req := jsonRequest(http.MethodPost, "/search", `{"query":""}`)
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
