package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusCreated, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)

	var result SuccessResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)

	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "123", data["id"])
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "invalid input", result.Error)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation error", domain.ErrEmptyContent, http.StatusBadRequest},
		{"not found error", domain.ErrResourceNotFound, http.StatusNotFound},
		{"unauthorized error", domain.ErrInvalidAPIKey, http.StatusUnauthorized},
		{"payload too large", domain.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"embedding error", domain.NewDomainError(domain.ErrCodeEmbedding, "down"), http.StatusBadGateway},
		{"generation error", domain.NewDomainError(domain.ErrCodeGenerationFailure, "down"), http.StatusBadGateway},
		{"storage error", domain.NewDomainError(domain.ErrCodeStorage, "db"), http.StatusInternalServerError},
		{"partial ingestion", domain.NewDomainError(domain.ErrCodePartialIngestion, "partial"), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("ctx: %w", domain.ErrResourceNotFound), http.StatusNotFound},
		{"unknown domain error", domain.NewDomainError("UNKNOWN", "unknown"), http.StatusInternalServerError},
		{"non-domain error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domain.ErrResourceNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "resource not found", result.Error)
	assert.Equal(t, domain.ErrCodeNotFound, result.Code)
}

func TestHandleError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestHandleError_UpstreamCauseStaysInLog(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"storage", domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "failed to list resources",
			errors.New("ERROR: relation \"resources\" does not exist (SQLSTATE 42P01)")), "failed to list resources"},
		{"embedding", domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to embed query",
			errors.New("dial tcp 10.0.0.9:443: connection refused")), "failed to embed query"},
		{"generation", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailure, "failed to start generation",
			errors.New("connection refused")), "failed to start generation"},
		{"wrapped", fmt.Errorf("ingest transaction: %w", domain.NewDomainErrorWithCause(domain.ErrCodeStorage,
			"failed to persist chunks", errors.New("SQLSTATE 23503"))), "failed to persist chunks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err)

			var result ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.want, result.Error)
			assert.NotContains(t, w.Body.String(), "SQLSTATE")
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}

func TestHandleError_ValidationKeepsDetail(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", errors.New("invalid cursor format")))

	var result ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "invalid cursor: invalid cursor format", result.Error)
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Content string `json:"content"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "hi", v.Content)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeJSON(r, &v)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}
