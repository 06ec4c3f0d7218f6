package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeEmbedding         = "EMBEDDING_ERROR"
	ErrCodeStorage           = "STORAGE_ERROR"
	ErrCodePartialIngestion  = "PARTIAL_INGESTION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeGenerationFailure = "GENERATION_ERROR"
	ErrCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
)

// Validation errors
var (
	ErrEmptyContent     = NewDomainError(ErrCodeValidation, "content cannot be empty")
	ErrNoChunks         = NewDomainError(ErrCodeValidation, "content has no text to embed")
	ErrEmptyQuery       = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptyDocument    = NewDomainError(ErrCodeValidation, "document has no sections")
	ErrInvalidEncoding  = NewDomainError(ErrCodeValidation, "document is not valid UTF-8")
	ErrNoUserMessage    = NewDomainError(ErrCodeValidation, "conversation must end with a user message")
	ErrInvalidRole      = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrDimensionChanged = NewDomainError(ErrCodeValidation, "embedding dimensionality differs from the store")
	ErrPayloadTooLarge  = NewDomainError(ErrCodePayloadTooLarge, "request body too large")
)

// Embedding errors
var (
	ErrEmbeddingCountMismatch = NewDomainError(ErrCodeEmbedding, "embedding count does not match input count")
)

// Not found errors
var (
	ErrResourceNotFound = NewDomainError(ErrCodeNotFound, "resource not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// CodeOf returns the code of the first DomainError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// UserMessage renders err as the text shown to an end user. Codes are left out.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		if de.Err != nil {
			return de.Message + ": " + UserMessage(de.Err)
		}
		return de.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Error, please try again."
}
