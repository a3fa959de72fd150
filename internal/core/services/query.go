package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// answerPrompt is the template used for grounded generation.
const answerPrompt = `Answer the question using only the provided context. ` +
	`If the context does not contain the answer, say that the corpus has no answer.

Context:
%s

Question: %s

Answer:`

// QueryService runs the query pipeline: embed the query, search the
// index, hydrate and rank results, assemble a token-budgeted context,
// and optionally generate a grounded answer.
type QueryService struct {
	cfg       domain.PipelineConfig
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	docStore  driven.DocumentStore
	llm       driven.LLMService
	assembler *ContextAssembler
}

// NewQueryService creates a query service. The llm is optional; when
// nil every query runs in retrieval-only mode.
func NewQueryService(
	cfg domain.PipelineConfig,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
	llm driven.LLMService,
) (*QueryService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	assembler, err := NewContextAssembler(cfg.MaxContextTokens)
	if err != nil {
		return nil, err
	}
	return &QueryService{
		cfg:       cfg,
		embedder:  embedder,
		index:     index,
		docStore:  docStore,
		llm:       llm,
		assembler: assembler,
	}, nil
}

// Retrieve embeds the query, searches the index, and returns ranked,
// hydrated results. Empty results are not an error.
func (s *QueryService) Retrieve(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.RetrievalResult, error) {
	defer logger.Stage("Retrieval")()

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.RetrievalResult{}, nil
	}

	k := opts.TopK
	if k <= 0 {
		k = s.cfg.TopK
	}
	threshold := s.cfg.SimilarityThreshold
	if opts.ThresholdSet || opts.Threshold != 0 {
		threshold = opts.Threshold
	}
	logger.Debug("Query %q: k=%d threshold=%.3f filters=%v", query, k, threshold, opts.Filters)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", domain.ErrEmbedding, err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	hits, err := s.index.Search(ctx, vector, k, threshold, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	logger.Debug("Index search: %d hits", len(hits))

	results, err := s.hydrate(ctx, hits)
	if err != nil {
		return nil, err
	}
	logger.Info("Retrieved %d results", len(results))
	return results, nil
}

// Ask runs the full query pipeline. With opts.NoLLM, or when no LLM
// is configured, it stops after context assembly. When generation
// fails the returned answer still carries the retrieval results so
// callers can degrade to a retrieval-only response; the error wraps
// domain.ErrGeneration.
func (s *QueryService) Ask(ctx context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	results, err := s.Retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	assembled := s.assembler.Assemble(results)
	answer := &domain.Answer{
		Results:  results,
		Grounded: len(results) > 0,
	}

	if opts.NoLLM || s.llm == nil {
		logger.Info("Retrieval-only mode, skipping generation")
		answer.Text = assembled
		return answer, nil
	}

	defer logger.Stage("Generation")()
	prompt := fmt.Sprintf(answerPrompt, assembled, query)
	text, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{})
	if err != nil {
		logger.Warn("Generation failed: %v", err)
		answer.Text = assembled
		return answer, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	answer.Text = text
	answer.Generated = true
	return answer, nil
}

// hydrate converts index hits into full RetrievalResults using the
// document store. Chunks or documents removed since indexing are
// skipped.
func (s *QueryService) hydrate(ctx context.Context, hits []driven.VectorHit) ([]domain.RetrievalResult, error) {
	results := make([]domain.RetrievalResult, 0, len(hits))

	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Chunk %s missing from store, skipping", hit.ChunkID)
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		citation := ""
		doc, err := s.docStore.GetDocument(ctx, chunk.DocumentID)
		switch {
		case err == nil:
			citation = fmt.Sprintf("%s#%d", doc.URI, chunk.Position)
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("Document %s missing from store", chunk.DocumentID)
		default:
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}

		results = append(results, domain.RetrievalResult{
			ChunkID:  chunk.ID,
			Score:    hit.Score,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
			Citation: citation,
		})
	}

	return results, nil
}
