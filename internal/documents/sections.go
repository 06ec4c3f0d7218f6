// Package documents parses section-structured text documents for bulk loading.
package documents

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

var headingPattern = regexp.MustCompile(`^#{1,6}[ \t]+(.*?)[ \t#]*$`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse validates raw document bytes and splits them into sections.
func Parse(name string, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, domain.ErrInvalidEncoding
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	sections := SplitSections(string(data))
	if len(sections) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	return &domain.Document{Name: name, Sections: sections}, nil
}

// SplitSections splits content on heading lines. A section runs from its heading
// to the next heading or the end of the content. Non-empty text before the first
// heading becomes a section with an empty title. Sections without body text are
// dropped. Lines inside fenced code blocks are never treated as headings.
func SplitSections(content string) []domain.Section {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var sections []domain.Section
	var title string
	var body []string
	inFence := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			sections = append(sections, domain.Section{Title: title, Body: text})
		}
		body = body[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence {
			if m := headingPattern.FindStringSubmatch(line); m != nil {
				flush()
				title = strings.TrimSpace(m[1])
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// WithProvenance prefixes a section body with the document and section it came from.
func WithProvenance(source string, section domain.Section) string {
	return fmt.Sprintf("Source: %s\nSection: %s\n\n%s", source, section.Title, section.Body)
}
