package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrCodeEmbedding, domain.ErrCodeGenerationFailure:
		return http.StatusBadGateway
	case domain.ErrCodeStorage, domain.ErrCodePartialIngestion, domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Client errors carry their full message chain. Upstream and server failures
// carry only the top-level message; the cause goes to the log.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		slog.Error("unclassified request failure", "component", "api", "err", err)
		JSON(w, status, ErrorResponse{Error: "internal server error", Code: domain.ErrCodeInternalError})
		return
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeUnauthorized, domain.ErrCodePayloadTooLarge:
		JSON(w, status, ErrorResponse{Error: domain.UserMessage(err), Code: domainErr.Code})
	default:
		slog.Error("request failed", "component", "api", "code", domainErr.Code, "err", err)
		JSON(w, status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
	}
}

// DecodeJSON reads a JSON request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ErrPayloadTooLarge
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid request body", err)
	}
	return nil
}
