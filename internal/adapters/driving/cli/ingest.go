package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/services"
	"github.com/custodia-labs/corpora-cli/internal/index/flat"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

var (
	ingestIndexName string
	ingestWatch     bool
	ingestWorkers   int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Build the vector index from a document directory",
	Long: `Loads every text document under the directory, splits it into
overlapping chunks, embeds the chunks, and builds a vector index.
The corpus and the index snapshot are persisted, so queries can run
in later invocations. With --watch, the directory is re-ingested
whenever its contents change.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestIndexName, "index", "default", "index name")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "re-ingest when the directory changes")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "document processing workers (default: CPU count)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	sourceDir := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if ingestService == nil {
		svc, cleanup, err := buildIngestService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		ingestService = svc
		defer func() { ingestService = nil }()
	}

	if err := ingestOnce(ctx, cmd, sourceDir); err != nil {
		return err
	}
	if !ingestWatch {
		return nil
	}
	return watchAndIngest(ctx, cmd, sourceDir)
}

// ingestOnce runs one build pass and prints the report.
func ingestOnce(ctx context.Context, cmd *cobra.Command, sourceDir string) error {
	report, err := ingestService.Ingest(ctx, sourceDir, ingestIndexName)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printReport(cmd, report)
	if report.Failed() {
		return fmt.Errorf("%d of %d documents failed",
			report.DocumentsFailed, report.DocumentsSeen)
	}
	return nil
}

// watchAndIngest re-ingests on every debounced change until
// interrupted.
func watchAndIngest(ctx context.Context, cmd *cobra.Command, sourceDir string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := filesystem.NewSource()
	events, err := source.Watch(ctx, sourceDir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", sourceDir, err)
	}

	cmd.Printf("Watching %s for changes (Ctrl-C to stop)\n", sourceDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			logger.Info("Change detected, re-ingesting %s", sourceDir)
			if err := ingestOnce(ctx, cmd, sourceDir); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// Keep watching; the next change may succeed.
				cmd.PrintErrf("Re-ingest failed: %v\n", err)
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Indexed %d chunks from %d documents in %s\n",
		report.ChunksIndexed, report.DocumentsLoaded, report.Duration.Round(timeRounding))
	for _, f := range report.Failures {
		cmd.PrintErrf("  failed: %s: %v\n", f.URI, f.Err)
	}
}

// buildIngestService wires the full ingest pipeline from the loaded
// configuration.
func buildIngestService(ctx context.Context) (*services.IngestOrchestrator, func(), error) {
	cfg, err := cliConfig.PipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	embedder := buildEmbedder(ctx)
	cfg.EmbeddingModel = embedder.ModelName()

	split, err := newSplitter(cfg)
	if err != nil {
		return nil, nil, err
	}

	idx, err := flat.New(cfg.Metric, cfg.EmbeddingModel)
	if err != nil {
		return nil, nil, err
	}

	docStore, err := openDocStore()
	if err != nil {
		return nil, nil, err
	}
	blobs, err := openBlobStore()
	if err != nil {
		docStore.Close()
		return nil, nil, err
	}

	orch, err := services.NewIngestOrchestrator(cfg, filesystem.NewSource(), split, embedder, idx, docStore, blobs)
	if err != nil {
		docStore.Close()
		return nil, nil, err
	}
	orch.SetWorkers(ingestWorkers)

	cleanup := func() {
		embedder.Close()
		docStore.Close()
	}
	return orch, cleanup, nil
}
