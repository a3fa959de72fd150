package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive query console",
	Long: `Launch the interactive terminal interface for querying the corpus.

Controls:
  Enter    - Ask the typed question
  ↑/↓      - Browse the retrieved sources
  Esc, q   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&queryIndexName, "index", "default", "index name")
	tuiCmd.Flags().BoolVar(&queryNoLLM, "no-llm", false, "retrieval only, skip answer generation")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if queryService == nil {
		svc, cleanup, err := buildQueryService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		queryService = svc
		defer func() { queryService = nil }()
	}

	summary := fmt.Sprintf("index: %s", queryIndexName)
	model := tui.New(queryService, summary, domain.QueryOptions{NoLLM: queryNoLLM})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
