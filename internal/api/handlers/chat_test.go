package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChatHandler_StreamsReply(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	stream := &sliceStream{tokens: []string{"Your favorite ", "food is ", "pizza."}}
	mockSvc.On("HandleTurn", mock.Anything, []domain.Message{
		{Role: domain.RoleUser, Content: "what is my favorite food?"},
	}).Return(&service.Reply{Route: service.RouteAugmented, Stream: stream}, nil)

	req := jsonRequest(http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"what is my favorite food?"}]}`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "augmented", w.Header().Get(RouteHeader))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Your favorite food is pizza.", w.Body.String())
	assert.True(t, w.Flushed)
	assert.True(t, stream.closed)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_IngestRoute(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	mockSvc.On("HandleTurn", mock.Anything, mock.Anything).Return(&service.Reply{
		Route:  service.RouteIngest,
		Stream: domain.NewTextStream(service.ResourceCreatedMessage),
	}, nil)

	req := jsonRequest(http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"remember that I like tea"}]}`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ingest", w.Header().Get(RouteHeader))
	assert.Equal(t, service.ResourceCreatedMessage, w.Body.String())
}

func TestChatHandler_ValidationError(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	mockSvc.On("HandleTurn", mock.Anything, mock.Anything).Return(nil, domain.ErrNoUserMessage)

	req := jsonRequest(http.MethodPost, "/chat", `{"messages":[]}`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.ErrCodeValidation, resp["code"])
	assert.Empty(t, w.Header().Get(RouteHeader))
}

func TestChatHandler_GenerationStartFailure(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	mockSvc.On("HandleTurn", mock.Anything, mock.Anything).Return(nil,
		domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailure, "failed to start generation", errors.New("connection refused")))

	req := jsonRequest(http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestChatHandler_InvalidBody(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	req := jsonRequest(http.MethodPost, "/chat", `{not json`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "HandleTurn", mock.Anything, mock.Anything)
}

func TestChatHandler_StreamErrorTruncatesBody(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, nil)

	stream := &sliceStream{tokens: []string{"partial "}, err: errors.New("upstream reset")}
	mockSvc.On("HandleTurn", mock.Anything, mock.Anything).Return(&service.Reply{Route: service.RouteUnaugmented, Stream: stream}, nil)

	req := jsonRequest(http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial ", w.Body.String())
	assert.True(t, stream.closed)
}
