package service

import (
	"regexp"
	"strings"
)

// Intent is the routing decision for one user turn.
type Intent int

const (
	IntentChat Intent = iota
	IntentIngest
	IntentDiagnostic
)

func (i Intent) String() string {
	switch i {
	case IntentIngest:
		return "ingest"
	case IntentDiagnostic:
		return "diagnostic"
	default:
		return "chat"
	}
}

var (
	// "[can you] add this to the knowledge base: <content>"; add and
	// knowledge base must share one clause
	ingestPattern = regexp.MustCompile(`(?is)\badd\b[^.?!:]*?\bknowledge\s*base\s*:(.*)$`)
	// "check the database"
	diagnosticPattern = regexp.MustCompile(`(?i)\bcheck\s+(?:the\s+)?(?:database|db)\b`)
)

// ClassifyTurn pattern-matches a user message. For IntentIngest the returned
// payload is the content to add.
func ClassifyTurn(text string) (Intent, string) {
	if m := ingestPattern.FindStringSubmatch(text); m != nil {
		return IntentIngest, strings.TrimSpace(m[1])
	}
	if diagnosticPattern.MatchString(text) {
		return IntentDiagnostic, ""
	}
	return IntentChat, ""
}
