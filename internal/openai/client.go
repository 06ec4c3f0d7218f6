package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for chat generation
	DefaultChatModel = "gpt-4o-mini"

	// maxBatchInputs is the largest input array the embeddings endpoint accepts
	maxBatchInputs = 2048
)

var (
	// ErrEmptyText is returned when a text to embed is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrMissingEmbedding is returned when the provider omits a vector for some input
	ErrMissingEmbedding = errors.New("provider returned fewer embeddings than inputs")
)

// EmbeddingAPI defines the interface for batched embedding generation.
// Implementations return one vector per input, in input order.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	MaxToolSteps        int
	EmbeddingTimeout    time.Duration
	GenerationTimeout   time.Duration
}

func (c Config) clientConfig() openai.ClientConfig {
	cfg := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	return cfg
}

// OpenAIAdapter implements EmbeddingAPI and ChatAPI over the go-openai client.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg.clientConfig()),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API once for all inputs.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, 0, len(data))
	for _, d := range data {
		out = append(out, d.Embedding)
	}
	return out, nil
}

// Client is the embedding gateway.
type Client struct {
	api        EmbeddingAPI
	dimensions int
	timeout    time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return newClient(NewOpenAIAdapter(cfg), cfg)
}

func newClient(api EmbeddingAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{api: api, dimensions: dimensions, timeout: cfg.EmbeddingTimeout}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimensions returns the vector length every embedding is checked against.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedMany embeds texts in as few provider calls as possible and returns the
// vectors in input order. Empty input returns an empty result without a call.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := min(start+maxBatchInputs, len(texts))
		batch := texts[start:end]

		vectors, err := c.api.CreateEmbeddings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrMissingEmbedding, len(vectors), len(batch))
		}
		for _, v := range vectors {
			if len(v) != c.dimensions {
				return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(v), c.dimensions)
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}

// EmbedQuery embeds a single query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
