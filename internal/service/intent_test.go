package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTurn(t *testing.T) {
	tests := []struct {
		text        string
		wantIntent  Intent
		wantPayload string
	}{
		{"Add this to knowledge base: the sky is blue", IntentIngest, "the sky is blue"},
		{"please add to the knowledge base:   Go was released in 2009. ", IntentIngest, "Go was released in 2009."},
		{"ADD to my KnowledgeBase: X: Y", IntentIngest, "X: Y"},
		{"add this to knowledge base:\nmulti\nline", IntentIngest, "multi\nline"},
		{"add to knowledge base:", IntentIngest, ""},
		{"Can you add this to the knowledge base: tea is brewed at 80C", IntentIngest, "tea is brewed at 80C"},
		{"Hi! Could you please add to the knowledge base: Paris is in France", IntentIngest, "Paris is in France"},
		{"Did you add it? The knowledge base: is it empty", IntentChat, ""},
		{"I added notes to the knowledge base: yesterday", IntentChat, ""},
		{"Can you check the database?", IntentDiagnostic, ""},
		{"check database", IntentDiagnostic, ""},
		{"What color is the sky?", IntentChat, ""},
		{"tell me about the knowledge base: what is it", IntentChat, ""},
		{"I want to recheck databases", IntentChat, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			intent, payload := ClassifyTurn(tt.text)
			assert.Equal(t, tt.wantIntent, intent)
			assert.Equal(t, tt.wantPayload, payload)
		})
	}
}

func TestIntent_String(t *testing.T) {
	assert.Equal(t, "chat", IntentChat.String())
	assert.Equal(t, "ingest", IntentIngest.String())
	assert.Equal(t, "diagnostic", IntentDiagnostic.String())
}
