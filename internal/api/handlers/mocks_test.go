package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) HandleTurn(ctx context.Context, messages []domain.Message) (*service.Reply, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reply), args.Error(1)
}

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, content string) (*service.IngestResult, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockResourceService struct {
	mock.Mock
}

func (m *MockResourceService) Get(ctx context.Context, id string) (*domain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *MockResourceService) List(ctx context.Context, cursor string, limit int) (*domain.ResourcePage, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourcePage), args.Error(1)
}

func (m *MockResourceService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) FindRelevantContent(ctx context.Context, query string) ([]domain.SimilarityResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarityResult), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoreStats), args.Error(1)
}

// sliceStream yields tokens in order, then err (io.EOF when nil).
type sliceStream struct {
	tokens []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.tokens) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
