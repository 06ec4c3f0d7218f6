package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultMaxToolSteps bounds the number of model calls in one tool-calling turn.
const DefaultMaxToolSteps = 5

// ChatStream is the subset of *openai.ChatCompletionStream the generator reads.
type ChatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatAPI opens a streaming chat completion.
type ChatAPI interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error)
}

// CreateChatCompletionStream implements ChatAPI.
func (a *OpenAIAdapter) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (ChatStream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Generator is the chat generation gateway. It streams text and, when tools
// are supplied, runs the tool-calling loop until the model answers in text.
type Generator struct {
	api      ChatAPI
	model    string
	maxSteps int
	timeout  time.Duration
	logger   *slog.Logger
}

func NewGenerator(cfg Config, logger *slog.Logger) *Generator {
	return newGenerator(NewOpenAIAdapter(cfg), cfg, logger)
}

func newGenerator(api ChatAPI, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.ChatModel
	if model == "" {
		model = DefaultChatModel
	}
	steps := cfg.MaxToolSteps
	if steps <= 0 {
		steps = DefaultMaxToolSteps
	}
	return &Generator{
		api:      api,
		model:    model,
		maxSteps: steps,
		timeout:  cfg.GenerationTimeout,
		logger:   logger.With("component", "generator"),
	}
}

// Stream starts generation. Errors opening the first model call are returned
// directly so callers can fail before writing any output.
func (g *Generator) Stream(ctx context.Context, req domain.GenerationRequest) (domain.TokenStream, error) {
	cancel := context.CancelFunc(func() {})
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
	}

	ts := &toolStream{
		g:        g,
		ctx:      ctx,
		cancel:   cancel,
		messages: toChatMessages(req),
		handlers: make(map[string]domain.Tool, len(req.Tools)),
	}
	for _, t := range req.Tools {
		ts.handlers[t.Name] = t
		ts.tools = append(ts.tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if err := ts.open(); err != nil {
		cancel()
		return nil, err
	}
	return ts, nil
}

func toChatMessages(req domain.GenerationRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

// toolStream yields text deltas across every step of the tool loop.
type toolStream struct {
	g        *Generator
	ctx      context.Context
	cancel   context.CancelFunc
	messages []openai.ChatCompletionMessage
	tools    []openai.Tool
	handlers map[string]domain.Tool

	current ChatStream
	steps   int
	text    string
	calls   map[int]*openai.ToolCall
	done    bool
}

func (s *toolStream) open() error {
	req := openai.ChatCompletionRequest{
		Model:    s.g.model,
		Messages: s.messages,
		Stream:   true,
	}
	if len(s.tools) > 0 {
		req.Tools = s.tools
	}

	stream, err := s.g.api.CreateChatCompletionStream(s.ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start chat completion: %w", err)
	}
	s.current = stream
	s.steps++
	s.text = ""
	s.calls = make(map[int]*openai.ToolCall)
	return nil
}

func (s *toolStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		if s.current == nil {
			if s.steps >= s.g.maxSteps {
				s.g.logger.Warn("tool step limit reached", "steps", s.steps)
				s.done = true
				return "", io.EOF
			}
			if err := s.open(); err != nil {
				return "", err
			}
		}

		resp, err := s.current.Recv()
		if err == io.EOF {
			_ = s.current.Close()
			s.current = nil
			if len(s.calls) == 0 {
				s.done = true
				return "", io.EOF
			}
			s.runTools()
			continue
		}
		if err != nil {
			return "", fmt.Errorf("chat stream failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		for _, tc := range delta.ToolCalls {
			s.accumulate(tc)
		}
		if delta.Content != "" {
			s.text += delta.Content
			return delta.Content, nil
		}
	}
}

// accumulate merges a streamed tool call fragment into the call at its index.
func (s *toolStream) accumulate(tc openai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}

	call, ok := s.calls[idx]
	if !ok {
		call = &openai.ToolCall{Type: openai.ToolTypeFunction}
		s.calls[idx] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Function.Name += tc.Function.Name
	}
	call.Function.Arguments += tc.Function.Arguments
}

// runTools executes the pending calls and appends the assistant and tool
// messages for the next step.
func (s *toolStream) runTools() {
	indexes := make([]int, 0, len(s.calls))
	for i := range s.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	calls := make([]openai.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		calls = append(calls, *s.calls[i])
	}

	s.messages = append(s.messages, openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   s.text,
		ToolCalls: calls,
	})

	for _, call := range calls {
		result := s.execute(call)
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}
}

func (s *toolStream) execute(call openai.ToolCall) string {
	tool, ok := s.handlers[call.Function.Name]
	if !ok {
		s.g.logger.Warn("model requested unknown tool", "tool", call.Function.Name)
		return errorResult(fmt.Sprintf("unknown tool %q", call.Function.Name))
	}

	args := json.RawMessage(call.Function.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	s.g.logger.Debug("executing tool", "tool", tool.Name, "step", s.steps)
	out, err := tool.Execute(s.ctx, args)
	if err != nil {
		s.g.logger.Warn("tool failed", "tool", tool.Name, "error", err)
		return errorResult(domain.UserMessage(err))
	}
	return out
}

func errorResult(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

func (s *toolStream) Close() error {
	s.done = true
	var err error
	if s.current != nil {
		err = s.current.Close()
		s.current = nil
	}
	s.cancel()
	return err
}
