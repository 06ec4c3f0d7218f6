package service

import (
	"context"
	"errors"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/pagination"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ResourceStoreInterface reads and removes stored resources.
type ResourceStoreInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*domain.ResourcePage, error)
	Delete(ctx context.Context, id string) error
}

// ResourceService exposes stored resources to the API.
type ResourceService struct {
	store ResourceStoreInterface
}

func NewResourceService(store ResourceStoreInterface) *ResourceService {
	return &ResourceService{store: store}
}

func (s *ResourceService) Get(ctx context.Context, id string) (*domain.Resource, error) {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load resource")
	}
	return r, nil
}

// List returns one page of resources, newest first.
func (s *ResourceService) List(ctx context.Context, cursor string, limit int) (*domain.ResourcePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	decoded, err := pagination.Decode(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.store.ListWithCursor(ctx, decoded, limit)
	if err != nil {
		return nil, mapStoreError(err, "failed to list resources")
	}
	return page, nil
}

// Delete removes a resource and its chunks.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete resource")
	}
	return nil
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, domain.ErrResourceNotFound) {
		return domain.ErrResourceNotFound
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeStorage, msg, err)
}
