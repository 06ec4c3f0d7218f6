package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ragchat API server. Without DATABASE_URL the knowledge base lives in memory.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger := NewLogger(cfg)

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: telemetry.SampleRateFor(cfg.Environment),
		Debug:            cfg.Debug,
		Logger:           logger,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", "err", err)
	} else {
		defer shutdownTelemetry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []AppOption
	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); noMigrate {
		opts = append(opts, WithoutMigrations())
	}
	app, err := NewApp(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	if worker := app.RepairWorker(); worker != nil {
		go worker.Start(ctx)
		defer worker.Stop()
		logger.Info("repair worker started", "interval", cfg.RepairInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "chat_mode", cfg.ChatMode, "auth", cfg.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
