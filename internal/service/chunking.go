package service

import "strings"

// sentenceDelimiter terminates a chunk.
const sentenceDelimiter = "."

// ChunkText splits text into sentence chunks on the period character.
// Chunks are trimmed, whitespace-only chunks are dropped and order is kept.
// No merging or size capping is done, so long runs without a period stay
// a single chunk.
func ChunkText(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	parts := strings.Split(clean, sentenceDelimiter)
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if chunk := strings.TrimSpace(part); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
