// Package flat provides an exact-scan vector index with an
// atomically published snapshot.
//
// The index is single-writer: Build and Add serialise on an internal
// lock and publish a fresh snapshot through an atomic pointer, so
// concurrent Search calls observe either the old or the new snapshot,
// never a partially written one. Reads never block on other reads.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry holds one indexed chunk's identity and metadata. The vector
// lives in the snapshot's packed vector slab at the same ordinal.
type entry struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// snapshot is an immutable view of the index. Writers build a new
// snapshot and publish it atomically; it is never mutated afterwards.
// The metric and model name live here too, so a Load swaps vectors
// and scoring rules in one publication.
type snapshot struct {
	metric    domain.SimilarityMetric
	modelName string
	dims      int
	entries   []entry
	vectors   []float32 // row-major, len(entries)*dims
}

// Index is a flat vector index scoring every stored vector against
// the query.
type Index struct {
	mu   sync.Mutex // serialises Build/Add/Load
	snap atomic.Pointer[snapshot]
}

// New creates an empty index using the given metric. The model name
// is recorded in the persisted snapshot so query-time handles can
// detect embedder mismatches.
func New(metric domain.SimilarityMetric, modelName string) (*Index, error) {
	if metric != domain.MetricCosine && metric != domain.MetricDot {
		return nil, fmt.Errorf("%w: similarity metric %q", domain.ErrInvalidConfig, metric)
	}
	idx := &Index{}
	idx.snap.Store(&snapshot{metric: metric, modelName: modelName})
	return idx, nil
}

// Metric returns the similarity metric of the current snapshot.
func (idx *Index) Metric() domain.SimilarityMetric {
	return idx.snap.Load().metric
}

// ModelName returns the embedding model recorded for this index.
func (idx *Index) ModelName() string {
	return idx.snap.Load().modelName
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.snap.Load().entries)
}

// Dimensions returns the fixed embedding dimension, or zero when the
// index is empty.
func (idx *Index) Dimensions() int {
	return idx.snap.Load().dims
}

// Build constructs the index from scratch, replacing any existing
// snapshot atomically.
func (idx *Index) Build(_ context.Context, chunks []domain.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	next, err := extend(&snapshot{metric: cur.metric, modelName: cur.modelName}, chunks)
	if err != nil {
		return err
	}
	idx.snap.Store(next)
	return nil
}

// Add extends the index with additional chunks. Implemented as
// copy-and-swap: the previous snapshot stays visible to readers until
// the extended one is published.
func (idx *Index) Add(_ context.Context, chunks []domain.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next, err := extend(idx.snap.Load(), chunks)
	if err != nil {
		return err
	}
	idx.snap.Store(next)
	return nil
}

// extend builds a new snapshot containing base plus chunks. Called
// with idx.mu held.
func extend(base *snapshot, chunks []domain.Chunk) (*snapshot, error) {
	dims := base.dims
	seen := make(map[string]struct{}, len(base.entries)+len(chunks))
	for _, e := range base.entries {
		seen[e.ID] = struct{}{}
	}

	entries := make([]entry, len(base.entries), len(base.entries)+len(chunks))
	copy(entries, base.entries)
	vectors := make([]float32, len(base.vectors), len(base.vectors)+len(chunks)*maxInt(dims, 1))
	copy(vectors, base.vectors)

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrDimensionMismatch, c.ID)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return nil, fmt.Errorf("%w: chunk %s has dimension %d, index has %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Embedding), dims)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %s", c.ID)
		}
		seen[c.ID] = struct{}{}

		entries = append(entries, entry{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Metadata:   copyMetadata(c.Metadata),
		})
		vectors = append(vectors, storedVector(base.metric, c.Embedding)...)
	}

	return &snapshot{
		metric:    base.metric,
		modelName: base.modelName,
		dims:      dims,
		entries:   entries,
		vectors:   vectors,
	}, nil
}

// storedVector prepares a vector for storage. Cosine indexes store
// unit vectors so search reduces to an inner product.
func storedVector(metric domain.SimilarityMetric, v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	if metric == domain.MetricCosine {
		normalise(out)
	}
	return out
}

// Search returns up to k hits with score >= threshold, in
// non-increasing score order with ties broken by insertion order.
func (idx *Index) Search(_ context.Context, query []float32, k int, threshold float64, filters map[string]string) ([]driven.VectorHit, error) {
	snap := idx.snap.Load()
	if len(snap.entries) == 0 || k <= 0 {
		return []driven.VectorHit{}, nil
	}
	if len(query) != snap.dims {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrDimensionMismatch, len(query), snap.dims)
	}

	q := query
	if snap.metric == domain.MetricCosine {
		q = make([]float32, len(query))
		copy(q, query)
		normalise(q)
	}

	type scored struct {
		ordinal int
		score   float64
	}
	candidates := make([]scored, 0, len(snap.entries))

	for i, e := range snap.entries {
		if !matchesFilters(e.Metadata, filters) {
			continue
		}
		score := dot(q, snap.vectors[i*snap.dims:(i+1)*snap.dims])
		if score < threshold {
			continue
		}
		candidates = append(candidates, scored{ordinal: i, score: score})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]driven.VectorHit, len(candidates))
	for i, c := range candidates {
		e := snap.entries[c.ordinal]
		hits[i] = driven.VectorHit{
			ChunkID:  e.ID,
			Score:    c.score,
			Metadata: copyMetadata(e.Metadata),
		}
	}
	return hits, nil
}

// matchesFilters reports whether metadata satisfies every exact-match
// predicate.
func matchesFilters(metadata, filters map[string]string) bool {
	for k, want := range filters {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// dot computes the inner product in float64 so summation order alone
// determines the result.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalise scales v to unit length in place. Zero vectors are left
// untouched.
func normalise(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func copyMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
