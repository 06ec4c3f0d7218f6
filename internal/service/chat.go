package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// ChatMode selects how a deployment consults the knowledge base.
type ChatMode string

const (
	// ChatModeAugment routes turns by pattern and pre-retrieves context.
	ChatModeAugment ChatMode = "augment"
	// ChatModeTools exposes the knowledge base as tools to the model.
	ChatModeTools ChatMode = "tools"
)

// IsValid reports whether m is a known mode.
func (m ChatMode) IsValid() bool {
	return m == ChatModeAugment || m == ChatModeTools
}

// Route is the path a turn took through the orchestration layer.
type Route string

const (
	RouteIngest      Route = "ingest"
	RouteDiagnostic  Route = "diagnostic"
	RouteAugmented   Route = "augmented"
	RouteUnaugmented Route = "unaugmented"
	RouteTools       Route = "tools"
)

const (
	DefaultSystemPrompt = "You are a helpful assistant. Answer the user's questions concisely. " +
		"Prefer the knowledge base information below when it is relevant."

	DefaultToolsSystemPrompt = "You are a helpful assistant. Check your knowledge base before answering any questions. " +
		"Only respond to questions using information from tool calls. " +
		"If no relevant information is found in the tool calls, respond, \"Sorry, I don't know.\""

	contextHeader = "Relevant information from the knowledge base:"
)

// Generator is the language-model generation service.
type Generator interface {
	Stream(ctx context.Context, req domain.GenerationRequest) (domain.TokenStream, error)
}

// ContextRetriever finds chunks relevant to a question.
type ContextRetriever interface {
	FindRelevantContent(ctx context.Context, query string) ([]domain.SimilarityResult, error)
}

// ResourceAdder ingests a submission and returns user-facing text.
type ResourceAdder interface {
	AddResource(ctx context.Context, content string) string
}

// StoreSummarizer renders the store diagnostic.
type StoreSummarizer interface {
	Summary(ctx context.Context) string
}

// ChatConfig controls the orchestration layer.
type ChatConfig struct {
	Mode         ChatMode
	SystemPrompt string
}

// DefaultChatConfig returns augment mode with the default prompt.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{Mode: ChatModeAugment}
}

// Reply is the assistant turn produced for one user turn.
type Reply struct {
	Route Route
	// System is the system instruction sent to the generator, empty when
	// generation was bypassed.
	System string
	Stream domain.TokenStream
}

// ChatService decides per user turn whether to ingest, report diagnostics or
// generate, and assembles the generation request.
type ChatService struct {
	retriever ContextRetriever
	adder     ResourceAdder
	stats     StoreSummarizer
	generator Generator
	cfg       ChatConfig
	logger    *slog.Logger
}

// NewChatService creates a new ChatService instance
func NewChatService(
	retriever ContextRetriever,
	adder ResourceAdder,
	stats StoreSummarizer,
	generator Generator,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatService {
	if !cfg.Mode.IsValid() {
		cfg.Mode = ChatModeAugment
	}
	if cfg.SystemPrompt == "" {
		if cfg.Mode == ChatModeTools {
			cfg.SystemPrompt = DefaultToolsSystemPrompt
		} else {
			cfg.SystemPrompt = DefaultSystemPrompt
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		retriever: retriever,
		adder:     adder,
		stats:     stats,
		generator: generator,
		cfg:       cfg,
		logger:    logger.With("component", "chat"),
	}
}

// HandleTurn answers the last user message of the conversation.
func (s *ChatService) HandleTurn(ctx context.Context, messages []domain.Message) (*Reply, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.HandleTurn", telemetry.SpanAttributes{Operation: "chat"})
	defer span.End()

	reply, err := s.handleTurn(ctx, messages)
	if err != nil {
		if domain.CodeOf(err) != domain.ErrCodeValidation {
			span.SetError(err)
		}
		return nil, err
	}
	span.SetRoute(string(reply.Route))
	return reply, nil
}

func (s *ChatService) handleTurn(ctx context.Context, messages []domain.Message) (*Reply, error) {
	if err := validateConversation(messages); err != nil {
		return nil, err
	}

	if s.cfg.Mode == ChatModeTools {
		return s.generate(ctx, RouteTools, s.cfg.SystemPrompt, messages, s.tools())
	}

	text := messages[len(messages)-1].Content
	intent, payload := ClassifyTurn(text)
	s.logger.Debug("classified turn", "intent", intent.String())

	switch intent {
	case IntentIngest:
		return &Reply{Route: RouteIngest, Stream: domain.NewTextStream(s.adder.AddResource(ctx, payload))}, nil
	case IntentDiagnostic:
		return &Reply{Route: RouteDiagnostic, Stream: domain.NewTextStream(s.stats.Summary(ctx))}, nil
	}

	results, err := s.retriever.FindRelevantContent(ctx, text)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without context", "err", err)
		telemetry.CaptureError(ctx, err)
		results = nil
	}

	if len(results) == 0 {
		return s.generate(ctx, RouteUnaugmented, s.cfg.SystemPrompt, messages, nil)
	}
	return s.generate(ctx, RouteAugmented, AugmentSystemPrompt(s.cfg.SystemPrompt, results), messages, nil)
}

func (s *ChatService) generate(ctx context.Context, route Route, system string, messages []domain.Message, tools []domain.Tool) (*Reply, error) {
	stream, err := s.generator.Stream(ctx, domain.GenerationRequest{
		System:   system,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailure, "failed to start generation", err)
	}
	return &Reply{Route: route, System: system, Stream: stream}, nil
}

// AugmentSystemPrompt appends retrieved chunk content to the system instruction.
func AugmentSystemPrompt(system string, results []domain.SimilarityResult) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	for _, r := range results {
		b.WriteString("\n- ")
		b.WriteString(r.Content)
	}
	return b.String()
}

func validateConversation(messages []domain.Message) error {
	if len(messages) == 0 || messages[len(messages)-1].Role != domain.RoleUser {
		return domain.ErrNoUserMessage
	}
	for _, m := range messages {
		if !m.Role.IsValid() {
			return domain.ErrInvalidRole
		}
	}
	return nil
}

var (
	addResourceParams    = json.RawMessage(`{"type":"object","properties":{"content":{"type":"string","description":"the content or resource to add to the knowledge base"}},"required":["content"]}`)
	getInformationParams = json.RawMessage(`{"type":"object","properties":{"question":{"type":"string","description":"the user's question"}},"required":["question"]}`)
)

func (s *ChatService) tools() []domain.Tool {
	return []domain.Tool{
		{
			Name:        "addResource",
			Description: "add a resource to your knowledge base. If the user provides a random piece of knowledge unprompted, use this tool without asking for confirmation.",
			Parameters:  addResourceParams,
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Content string `json:"content"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid addResource arguments: %w", err)
				}
				return s.adder.AddResource(ctx, in.Content), nil
			},
		},
		{
			Name:        "getInformation",
			Description: "get information from your knowledge base to answer questions.",
			Parameters:  getInformationParams,
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				var in struct {
					Question string `json:"question"`
				}
				if err := json.Unmarshal(args, &in); err != nil {
					return "", fmt.Errorf("invalid getInformation arguments: %w", err)
				}
				results, err := s.retriever.FindRelevantContent(ctx, in.Question)
				if err != nil {
					s.logger.Warn("tool retrieval failed", "err", err)
					payload, _ := json.Marshal(map[string]string{"error": domain.UserMessage(err)})
					return string(payload), nil
				}
				payload, err := json.Marshal(results)
				if err != nil {
					return "", err
				}
				return string(payload), nil
			},
		},
	}
}
