package driven

import "context"

// EmbeddingService generates vector embeddings from text. It is used
// for both chunks at build time and queries at query time.
//
// Output order always matches input order, and values are
// deterministic for a fixed model version. Implementations may batch
// internally for efficiency; batching must not change output values.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Any OpenAI-compatible inference server
//   - The deterministic hash fallback used when no backend is reachable
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Transient
	// failures (timeouts, rate limits) are retried with bounded
	// exponential backoff; a persistent failure aborts only the
	// affected batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This must match the index's fixed dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request. The startup capability probe uses it to decide
	// between the configured backend and the fallback embedder.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
