package driving

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// QueryService answers questions over the indexed corpus.
type QueryService interface {
	// Retrieve runs the retrieval half of the pipeline: embed the
	// query, search the index, and return ranked results. Empty
	// results are not an error.
	Retrieve(ctx context.Context, query string, opts domain.QueryOptions) ([]domain.RetrievalResult, error)

	// Ask runs the full query pipeline. With opts.NoLLM the pipeline
	// stops after context assembly and never invokes the generator.
	// When generation fails the answer degrades to retrieval-only
	// with the results still attached.
	Ask(ctx context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error)
}
