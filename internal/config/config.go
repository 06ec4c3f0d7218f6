package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. RAGCHAT_PORT. The
// unprefixed name is used as a fallback.
const EnvPrefix = "RAGCHAT"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// An empty DatabaseURL runs against the in-memory store.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// APIKey, when set, is required as a bearer token on the HTTP API.
	APIKey string `envconfig:"API_KEY"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	SystemPrompt        string        `envconfig:"SYSTEM_PROMPT"`
	EmbeddingTimeout    time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`
	GenerationTimeout   time.Duration `envconfig:"GENERATION_TIMEOUT" default:"2m"`

	MinScore     float64 `envconfig:"MIN_SCORE" default:"0.3"`
	ResultLimit  int     `envconfig:"RESULT_LIMIT" default:"5"`
	ChatMode     string  `envconfig:"CHAT_MODE" default:"augment"`
	MaxToolSteps int     `envconfig:"MAX_TOOL_STEPS" default:"5"`

	AtomicIngest   bool          `envconfig:"ATOMIC_INGEST" default:"false"`
	IngestWorkers  int           `envconfig:"INGEST_WORKERS" default:"1"`
	RepairInterval time.Duration `envconfig:"REPAIR_INTERVAL" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"ragchat-docs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

var (
	ErrInvalidChatMode = errors.New("CHAT_MODE must be augment or tools")
	ErrInvalidMinScore = errors.New("MIN_SCORE must be between -1 and 1")
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	if c.ChatMode != "augment" && c.ChatMode != "tools" {
		return fmt.Errorf("%w, got %q", ErrInvalidChatMode, c.ChatMode)
	}
	if c.MinScore < -1 || c.MinScore > 1 {
		return ErrInvalidMinScore
	}
	if c.ResultLimit <= 0 {
		return errors.New("RESULT_LIMIT must be positive")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("EMBEDDING_DIMENSIONS must be positive")
	}
	if c.IngestWorkers <= 0 {
		c.IngestWorkers = 1
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}
