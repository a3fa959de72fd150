// Package hash provides a deterministic fallback embedding service.
// It needs no external model or API: each text is hashed and the hash
// seeds a pseudo-random unit vector. Texts embed to the same vector
// on every run, so indexes built with it are reproducible, but the
// vectors carry no semantic signal beyond exact-text identity.
package hash

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches the MiniLM sentence-transformer family so
// fallback indexes have a familiar shape.
const DefaultDimensions = 384

// ModelName identifies fallback indexes in the snapshot header.
const ModelName = "hash-fallback"

// EmbeddingService generates deterministic hash-seeded embeddings.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedding service. A
// non-positive dimensions uses DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a deterministic unit vector for the text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

// EmbedBatch generates deterministic unit vectors for multiple texts.
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vector(t)
	}
	return out, nil
}

// vector hashes the text into a seed and draws a normalised vector
// from the seeded generator.
func (s *EmbeddingService) vector(text string) []float32 {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	v := make([]float32, s.dimensions)
	var norm float64
	for i := range v {
		f := rng.Float64()
		v[i] = float32(f)
		norm += f * f
	}
	norm = math.Sqrt(norm) + 1e-9
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the fallback model identifier.
func (s *EmbeddingService) ModelName() string {
	return fmt.Sprintf("%s-%d", ModelName, s.dimensions)
}

// Ping always succeeds; the service has no external dependency.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
