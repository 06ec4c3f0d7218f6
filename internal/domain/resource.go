package domain

import (
	"strings"
	"time"
)

// Resource is one persisted unit of submitted knowledge text.
type Resource struct {
	ID        string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourcePage is one page of resources ordered newest first.
type ResourcePage struct {
	Items      []*Resource
	NextCursor string
	HasMore    bool
}

// ValidateContent rejects submissions that carry no text.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}
