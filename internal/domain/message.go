package domain

import (
	"context"
	"encoding/json"
	"io"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsValid reports whether the role is one the generation service accepts.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Tool is a function the generation service may invoke mid-generation.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the arguments.
	Parameters json.RawMessage
	Execute    func(ctx context.Context, args json.RawMessage) (string, error)
}

// GenerationRequest is what the orchestration layer hands to the generation service.
type GenerationRequest struct {
	System   string
	Messages []Message
	Tools    []Tool
}

// TokenStream is a lazy, finite, forward-only sequence of response fragments.
// Recv returns io.EOF once the sequence is exhausted.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// NewTextStream returns a stream that yields text once and then io.EOF.
func NewTextStream(text string) TokenStream {
	return &textStream{text: text}
}

type textStream struct {
	text string
	done bool
}

func (s *textStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return s.text, nil
}

func (s *textStream) Close() error {
	s.done = true
	return nil
}
