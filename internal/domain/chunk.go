package domain

import "time"

// EmbeddedChunk is a retrieval unit derived from a Resource, paired with its embedding.
// Chunks are created in one batch right after their resource and never mutated.
type EmbeddedChunk struct {
	ID         string
	ResourceID string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ChunkEmbedding is the input row for a chunk batch insert.
type ChunkEmbedding struct {
	Content   string
	Embedding []float32
}

// SimilarityResult is a ranked chunk returned by a similarity query. Not persisted.
type SimilarityResult struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// ChunkSample is a lightweight view of a stored chunk for diagnostics.
type ChunkSample struct {
	ID              string
	Content         string
	EmbeddingLength int
}

// StoreStats summarizes the knowledge store contents.
type StoreStats struct {
	ResourceCount   int
	ChunkCount      int
	SampleResources []*Resource
	SampleChunks    []ChunkSample
}
