// Package cli implements the corpora command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/corpora-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose   bool
	flagConfigDir string
)

// Injected services. Production wiring builds them on demand from the
// loaded configuration; tests replace them with fakes.
var (
	cliConfig     *configfile.Config
	ingestService driving.IngestOrchestrator
	queryService  driving.QueryService
)

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Build and query retrieval-augmented corpora",
	Long: `corpora ingests document collections into a searchable vector index
and answers questions grounded in the retrieved content.

Documents are split into overlapping chunks, embedded, and stored in a
flat vector index alongside a SQLite corpus database. Queries embed the
question, retrieve the closest chunks, and optionally generate an
answer with an LLM using only the retrieved context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if cliConfig != nil {
			return nil
		}
		cfg, err := configfile.Load(flagConfigDir)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cliConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "", "config directory (default ~/.corpora)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
