package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidConfig indicates invalid pipeline parameters. It is
	// fatal and raised before any document is read.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmbedding indicates a persistent embedding failure after
	// retries were exhausted. At build time it fails only the
	// affected document; at query time it aborts the single query.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexNotFound indicates no index exists at the given path.
	// Fatal for any query.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates the persisted index could not be
	// decoded. Fatal for any query.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrDimensionMismatch indicates a vector whose dimension does
	// not match the index's fixed embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGeneration indicates the LLM call failed. Retrieval results
	// remain available for degradation to a retrieval-only response.
	ErrGeneration = errors.New("generation failed")

	// ErrEmbeddingUnavailable indicates the embedding backend is not
	// configured or unreachable. The startup probe selects the
	// deterministic fallback embedder instead.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM backend is not configured
	// or unreachable. The startup probe selects the template
	// fallback generator instead.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
