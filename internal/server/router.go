package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	Logger *slog.Logger
	// AuthValidator guards every route except /health. Nil disables auth.
	AuthValidator   middleware.AuthValidator
	ChatHandler     *handlers.ChatHandler
	ResourceHandler *handlers.ResourceHandler
	SearchHandler   *handlers.SearchHandler
	StatsHandler    *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.Post("/chat", cfg.ChatHandler.Chat)

		r.Route("/resources", func(r chi.Router) {
			r.Post("/", cfg.ResourceHandler.Create)
			r.Get("/", cfg.ResourceHandler.List)
			r.Get("/{id}", cfg.ResourceHandler.Get)
			r.Delete("/{id}", cfg.ResourceHandler.Delete)
		})

		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/stats", cfg.StatsHandler.Stats)
	})

	return r
}
