package domain

import "fmt"

// Default pipeline parameters.
const (
	DefaultChunkSize           = 800
	DefaultChunkOverlap        = 120
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.0
	DefaultMaxContextTokens    = 2048
)

// PipelineConfig is the explicit, immutable configuration for one
// pipeline instance. It is passed through every pipeline call and
// never read from process-wide state.
type PipelineConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters repeated from the
	// tail of one chunk at the head of the next.
	ChunkOverlap int

	// EmbeddingModel identifies the embedding model. Embeddings are
	// deterministic for a fixed model version.
	EmbeddingModel string

	// Metric is the similarity metric, fixed for the index lifetime.
	Metric SimilarityMetric

	// TopK is the default number of results per query.
	TopK int

	// SimilarityThreshold is the default minimum score per query.
	SimilarityThreshold float64

	// MaxContextTokens is the token budget for assembled context.
	MaxContextTokens int
}

// DefaultPipelineConfig returns a configuration with default values
// and the given model and metric.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:           DefaultChunkSize,
		ChunkOverlap:        DefaultChunkOverlap,
		Metric:              MetricCosine,
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxContextTokens:    DefaultMaxContextTokens,
	}
}

// Validate checks the configuration. It is called before any document
// is read; a failure is fatal for the run.
func (c PipelineConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.Metric != MetricCosine && c.Metric != MetricDot {
		return fmt.Errorf("%w: similarity metric %q (want cosine or dot)", ErrInvalidConfig, c.Metric)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("%w: max context tokens must be positive, got %d", ErrInvalidConfig, c.MaxContextTokens)
	}
	return nil
}
