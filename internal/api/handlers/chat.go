package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/service"
)

// RouteHeader carries the orchestration route a chat reply took.
const RouteHeader = "X-Chat-Route"

type ChatService interface {
	HandleTurn(ctx context.Context, messages []domain.Message) (*service.Reply, error)
}

type ChatHandler struct {
	svc    ChatService
	logger *slog.Logger
}

func NewChatHandler(svc ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{svc: svc, logger: logger.With("component", "chat_handler")}
}

type ChatRequest struct {
	Messages []domain.Message `json:"messages"`
}

// Chat answers the last user message and streams the reply as chunked plain text.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	reply, err := h.svc.HandleTurn(r.Context(), req.Messages)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer reply.Stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(RouteHeader, string(reply.Route))
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for {
		token, err := reply.Stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// headers are already sent, the client sees a truncated body
			h.logger.Error("reply stream failed", "route", reply.Route, "err", err)
			return
		}
		if _, err := io.WriteString(w, token); err != nil {
			h.logger.Debug("client went away", "err", err)
			return
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return
		}
	}
}
