package driven

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// VectorIndex stores chunk embeddings and provides nearest-neighbour
// search. Build and Add are single-writer operations: concurrent
// calls on the same index are serialised internally, and the new
// snapshot is published atomically so concurrent Search calls see
// either the old or the new snapshot, never a partial one.
type VectorIndex interface {
	// Build constructs the index from scratch, replacing any
	// existing snapshot atomically.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// Add extends the index with additional chunks while preserving
	// all existing search guarantees.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to k hits with score >= threshold, ordered
	// by descending score with ties broken by insertion order.
	// Filters are exact-match metadata predicates evaluated before
	// scoring. Searching an empty index returns an empty slice,
	// never an error.
	Search(ctx context.Context, query []float32, k int, threshold float64, filters map[string]string) ([]VectorHit, error)

	// Len returns the number of indexed chunks.
	Len() int

	// Dimensions returns the fixed embedding dimension, or zero when
	// the index is empty.
	Dimensions() int

	// Metric returns the similarity metric fixed at construction.
	Metric() domain.SimilarityMetric

	// Save persists the current snapshot through the blob store.
	// Metadata round-trips exactly; vectors round-trip within
	// floating-point tolerance, reproducing identical rankings.
	Save(ctx context.Context, blobs BlobStore, path string) error

	// Load replaces the snapshot with a persisted one.
	Load(ctx context.Context, blobs BlobStore, path string) error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity under the index's metric.
	Score float64

	// Metadata contains the chunk's key-value pairs as stored in the
	// index snapshot.
	Metadata map[string]string
}
