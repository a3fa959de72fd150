package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/services"
	"github.com/custodia-labs/corpora-cli/internal/index/flat"
)

var (
	queryIndexName string
	queryTopK      int
	queryThreshold float64
	queryNoLLM     bool
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question against the indexed corpus",
	Long: `Embeds the question, retrieves the most similar chunks from the
vector index, and generates an answer grounded in the retrieved
content. With --no-llm, the assembled context is printed without
invoking a generator.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryIndexName, "index", "default", "index name")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "minimum similarity score (default from config)")
	queryCmd.Flags().BoolVar(&queryNoLLM, "no-llm", false, "retrieval only, skip answer generation")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]
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

	opts := domain.QueryOptions{
		TopK:         queryTopK,
		Threshold:    queryThreshold,
		ThresholdSet: cmd.Flags().Changed("threshold"),
		NoLLM:        queryNoLLM,
	}

	answer, err := queryService.Ask(ctx, question, opts)
	if err != nil {
		// A generation failure still carries the retrieval results;
		// show them before reporting the error.
		if answer != nil && errors.Is(err, domain.ErrGeneration) {
			printAnswer(cmd, answer)
			cmd.PrintErrln()
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputAnswerJSON(cmd, answer)
	}
	printAnswer(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)

	if len(answer.Results) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, r := range answer.Results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.Citation, r.Score)
	}
}

// buildQueryService wires the query pipeline, loading the persisted
// index snapshot.
func buildQueryService(ctx context.Context) (*services.QueryService, func(), error) {
	cfg, err := cliConfig.PipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	embedder := buildEmbedder(ctx)
	cfg.EmbeddingModel = embedder.ModelName()

	idx, err := flat.New(cfg.Metric, cfg.EmbeddingModel)
	if err != nil {
		return nil, nil, err
	}

	blobs, err := openBlobStore()
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Load(ctx, blobs, services.IndexBlobPath(queryIndexName)); err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, nil, fmt.Errorf("index %q not found, run `corpora ingest` first", queryIndexName)
		}
		return nil, nil, fmt.Errorf("loading index %q: %w", queryIndexName, err)
	}
	if idx.ModelName() != embedder.ModelName() {
		return nil, nil, fmt.Errorf("index %q was built with embedding model %s, current model is %s; re-ingest the corpus",
			queryIndexName, idx.ModelName(), embedder.ModelName())
	}

	docStore, err := openDocStore()
	if err != nil {
		return nil, nil, err
	}

	var llm driven.LLMService
	if !queryNoLLM {
		llm = buildLLM(ctx)
	}

	svc, err := services.NewQueryService(cfg, embedder, idx, docStore, llm)
	if err != nil {
		docStore.Close()
		return nil, nil, err
	}

	cleanup := func() {
		embedder.Close()
		if llm != nil {
			llm.Close()
		}
		docStore.Close()
	}
	return svc, cleanup, nil
}
