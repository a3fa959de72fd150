package domain

import "fmt"

// SimilarityMetric is the scoring function used to rank vector
// closeness. It is a build-time choice and fixed for the lifetime of
// an index.
type SimilarityMetric string

const (
	// MetricCosine ranks by cosine similarity.
	MetricCosine SimilarityMetric = "cosine"

	// MetricDot ranks by inner product.
	MetricDot SimilarityMetric = "dot"
)

// ParseMetric converts a configuration string into a SimilarityMetric.
func ParseMetric(s string) (SimilarityMetric, error) {
	switch SimilarityMetric(s) {
	case MetricCosine:
		return MetricCosine, nil
	case MetricDot:
		return MetricDot, nil
	default:
		return "", fmt.Errorf("%w: similarity metric %q (want cosine or dot)", ErrInvalidConfig, s)
	}
}

// QueryOptions configures a single retrieval.
type QueryOptions struct {
	// TopK is the maximum number of results. Zero falls back to the
	// pipeline configuration.
	TopK int

	// Threshold is the minimum similarity score. Results scoring
	// below it are dropped. A zero value falls back to the pipeline
	// configuration unless ThresholdSet marks it as deliberate.
	Threshold float64

	// ThresholdSet marks Threshold as explicitly chosen, letting a
	// caller request a threshold of exactly zero.
	ThresholdSet bool

	// Filters are exact-match metadata predicates. A chunk must
	// match every entry to be returned.
	Filters map[string]string

	// NoLLM forces retrieval-only mode: the pipeline stops after
	// context assembly and never invokes the generator.
	NoLLM bool
}

// RetrievalResult represents a single retrieved chunk.
type RetrievalResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity score under the index's metric.
	// Scores are monotonic with relevance.
	Score float64

	// Content is the chunk text.
	Content string

	// Metadata contains the chunk's key-value pairs.
	Metadata map[string]string

	// Citation is the source reference for the chunk, derived from
	// the parent document's URI.
	Citation string
}

// Answer is the outcome of the query pipeline.
type Answer struct {
	// Text is the generated answer, or the assembled context summary
	// in retrieval-only mode.
	Text string

	// Results are the retrieval results backing the answer. They are
	// always populated, so callers can degrade gracefully when
	// generation fails.
	Results []RetrievalResult

	// Grounded is true when at least one supporting chunk was found.
	Grounded bool

	// Generated is true when the text came from the LLM backend,
	// false in retrieval-only mode or after degradation.
	Generated bool
}
