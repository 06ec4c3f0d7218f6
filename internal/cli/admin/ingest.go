package admin

import (
	"fmt"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/spf13/cobra"
)

// IngestCmd returns the bulk loader command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load markdown documents into the knowledge base",
		Long: `Splits every .md, .markdown and .txt document on its headings and ingests each
section with a provenance header. Documents are read from a local directory or,
with --s3-prefix, from the configured bucket. A malformed document is reported
and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("s3-prefix", "", "Read documents under this prefix of S3_BUCKET")
	cmd.Flags().Int("workers", 0, "Documents processed in parallel (overrides INGEST_WORKERS)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.IngestWorkers = workers
	}
	if !cfg.HasDatabase() {
		return fmt.Errorf("DATABASE_URL is required: the in-memory store does not outlive this command")
	}

	logger := NewLogger(cfg)
	ctx := cmd.Context()

	var opts []AppOption
	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); noMigrate {
		opts = append(opts, WithoutMigrations())
	}
	app, err := NewApp(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	var dir string
	if len(args) == 1 {
		dir = args[0]
	}
	prefix, _ := cmd.Flags().GetString("s3-prefix")
	src, err := app.DocumentSource(ctx, dir, prefix)
	if err != nil {
		return err
	}

	result, err := app.Ingestion.IngestDocuments(ctx, src)
	if result != nil {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Ingested %d documents (%d sections)\n", result.Documents, result.Sections)
		for _, f := range result.Failures {
			fmt.Fprintf(out, "  failed: %s: %v\n", f.Name, f.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion stopped: %w", err)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d documents failed", len(result.Failures))
	}
	return nil
}
