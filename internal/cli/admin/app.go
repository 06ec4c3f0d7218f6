package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/database"
	"github.com/cloo-solutions/ragchat/internal/documents"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/openai"
	"github.com/cloo-solutions/ragchat/internal/repository"
	"github.com/cloo-solutions/ragchat/internal/repository/memory"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/cloo-solutions/ragchat/internal/storage"
)

// schemaDimensions is the vector width fixed by the embeddings migration.
const schemaDimensions = 1536

var ErrNoModelProvider = errors.New("OPENAI_API_KEY or OPENAI_BASE_URL must be set")

// App is the wired set of services shared by serve, ingest and stats.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Ingestion *service.IngestionService
	Retrieval *service.RetrievalService
	Chat      *service.ChatService
	Stats     *service.StatsService
	Resources *service.ResourceService

	orphans jobs.OrphanRepository
	closers []func()
}

type appOptions struct {
	embedder    service.Embedder
	generator   service.Generator
	skipMigrate bool
}

// AppOption overrides a default collaborator.
type AppOption func(*appOptions)

func WithEmbedder(e service.Embedder) AppOption {
	return func(o *appOptions) { o.embedder = e }
}

func WithGenerator(g service.Generator) AppOption {
	return func(o *appOptions) { o.generator = g }
}

// WithoutMigrations skips applying migrations when a database is configured.
func WithoutMigrations() AppOption {
	return func(o *appOptions) { o.skipMigrate = true }
}

type store interface {
	service.ResourceRepositoryInterface
	service.ChunkRepositoryInterface
	service.SimilarityQuerier
	service.ResourceStoreInterface
	service.StatsRepositoryInterface
	jobs.OrphanRepository
}

// pgStore groups the Postgres repositories behind one store value.
type pgStore struct {
	*repository.ResourceRepository
	*repository.EmbeddingRepository
	*repository.StatsRepository
}

// NewApp connects the store and model provider selected by cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}

	modelCfg := openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
		MaxToolSteps:        cfg.MaxToolSteps,
		EmbeddingTimeout:    cfg.EmbeddingTimeout,
		GenerationTimeout:   cfg.GenerationTimeout,
	}
	if o.embedder == nil || o.generator == nil {
		if !cfg.HasOpenAI() && cfg.OpenAIBaseURL == "" {
			return nil, ErrNoModelProvider
		}
	}
	if o.embedder == nil {
		o.embedder = openai.NewClientWithConfig(modelCfg)
	}
	if o.generator == nil {
		o.generator = openai.NewGenerator(modelCfg, logger)
	}

	ingestOpts := []service.IngestionOption{
		service.WithIngestWorkers(cfg.IngestWorkers),
		service.WithIngestionLogger(logger),
	}

	var st store
	if cfg.HasDatabase() {
		if cfg.EmbeddingDimensions != schemaDimensions {
			logger.Warn("embedding dimensions differ from the schema, inserts will fail",
				"configured", cfg.EmbeddingDimensions, "schema", schemaDimensions)
		}
		if !o.skipMigrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource, "up"); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Info("migrations applied")
		}

		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		logger.Info("connected to database")

		st = &pgStore{
			ResourceRepository:  repository.NewResourceRepository(pool),
			EmbeddingRepository: repository.NewEmbeddingRepository(pool),
			StatsRepository:     repository.NewStatsRepository(pool),
		}
		if cfg.AtomicIngest {
			ingestOpts = append(ingestOpts, service.WithTxRunner(repository.NewTxRunner(pool)))
		}
	} else {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		st = memory.NewStore()
	}

	app.orphans = st
	app.Ingestion = service.NewIngestionService(o.embedder, st, st, ingestOpts...)
	app.Retrieval = service.NewRetrievalServiceWithConfig(o.embedder, st, service.RetrievalConfig{
		MinScore: cfg.MinScore,
		Limit:    cfg.ResultLimit,
	}, logger)
	app.Stats = service.NewStatsService(st)
	app.Resources = service.NewResourceService(st)
	app.Chat = service.NewChatService(app.Retrieval, app.Ingestion, app.Stats, o.generator, service.ChatConfig{
		Mode:         service.ChatMode(cfg.ChatMode),
		SystemPrompt: cfg.SystemPrompt,
	}, logger)

	return app, nil
}

// Handler builds the HTTP surface.
func (a *App) Handler() http.Handler {
	var validator middleware.AuthValidator
	if a.Config.APIKey != "" {
		validator = middleware.NewStaticKeyValidator(a.Config.APIKey)
	}

	return server.NewRouter(server.RouterConfig{
		Logger:          a.Logger,
		AuthValidator:   validator,
		ChatHandler:     handlers.NewChatHandler(a.Chat, a.Logger),
		ResourceHandler: handlers.NewResourceHandler(a.Ingestion, a.Resources),
		SearchHandler:   handlers.NewSearchHandler(a.Retrieval),
		StatsHandler:    handlers.NewStatsHandler(a.Stats),
	})
}

// RepairWorker returns the orphan repair loop, or nil when REPAIR_INTERVAL is zero.
func (a *App) RepairWorker() *jobs.Worker {
	if a.Config.RepairInterval <= 0 {
		return nil
	}
	return jobs.NewWorker(a.Repairer(), a.Config.RepairInterval, a.Logger, jobs.WithSweepTimeout(a.Config.RepairInterval))
}

// Repairer re-embeds resources left without chunks.
func (a *App) Repairer() *jobs.RepairWorker {
	return jobs.NewRepairWorker(a.orphans, a.Ingestion, a.Logger)
}

// DocumentSource picks the local directory or, with an S3 prefix, the bucket.
func (a *App) DocumentSource(ctx context.Context, dir, s3Prefix string) (service.DocumentSource, error) {
	if s3Prefix == "" {
		if dir == "" {
			return nil, errors.New("a directory or --s3-prefix is required")
		}
		return documents.NewDirSource(dir), nil
	}

	if !a.Config.HasS3() {
		return nil, errors.New("--s3-prefix needs S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY")
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        a.Config.S3Endpoint,
		Region:          a.Config.S3Region,
		AccessKeyID:     a.Config.S3AccessKey,
		SecretAccessKey: a.Config.S3SecretKey,
		Bucket:          a.Config.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return documents.NewS3Source(client, s3Prefix), nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// NewLogger returns the JSON logger used by the daemon.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
