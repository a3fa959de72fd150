package flat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// memBlobs is an in-memory BlobStore for tests.
type memBlobs struct {
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) WriteBlob(_ context.Context, path string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[path] = cp
	return nil
}

func (m *memBlobs) ReadBlob(_ context.Context, path string) ([]byte, error) {
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return data, nil
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	original := buildIndex(t, domain.MetricCosine,
		chunk("a", []float32{0.12, 0.88, 0.3}, map[string]string{"lang": "en", "tier": "1"}),
		chunk("b", []float32{0.7, 0.1, 0.2}, map[string]string{"lang": "de"}),
		chunk("c", []float32{0.33, 0.33, 0.34}, nil),
	)
	require.NoError(t, original.Save(ctx, blobs, "index.bin"))

	reloaded, err := New(domain.MetricDot, "")
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx, blobs, "index.bin"))

	// The stored metric and model name take over the handle.
	assert.Equal(t, domain.MetricCosine, reloaded.Metric())
	assert.Equal(t, "test-model", reloaded.ModelName())
	assert.Equal(t, original.Len(), reloaded.Len())
	assert.Equal(t, original.Dimensions(), reloaded.Dimensions())

	// Identical rankings and metadata after reload.
	query := []float32{0.5, 0.4, 0.1}
	want, err := original.Search(ctx, query, 3, -1, nil)
	require.NoError(t, err)
	got, err := reloaded.Search(ctx, query, 3, -1, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoad_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	idx, err := New(domain.MetricDot, "m")
	require.NoError(t, err)
	require.NoError(t, idx.Save(ctx, blobs, "empty.bin"))

	reloaded, err := New(domain.MetricDot, "m")
	require.NoError(t, err)
	require.NoError(t, reloaded.Load(ctx, blobs, "empty.bin"))

	hits, err := reloaded.Search(ctx, []float32{1}, 5, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLoad_MissingBlob(t *testing.T) {
	idx, err := New(domain.MetricCosine, "m")
	require.NoError(t, err)

	err = idx.Load(context.Background(), newMemBlobs(), "nope.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestLoad_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("definitely not an index")},
		{"bad magic", []byte("XXXX\x01\x00\x00")},
		{"truncated", []byte("CPIX")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, blobs.WriteBlob(ctx, "bad.bin", tt.data))

			idx, err := New(domain.MetricCosine, "m")
			require.NoError(t, err)

			err = idx.Load(ctx, blobs, "bad.bin")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
		})
	}
}

func TestLoad_TruncatedVectorSlab(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	idx := buildIndex(t, domain.MetricDot, chunk("a", []float32{1, 2, 3}, nil))
	require.NoError(t, idx.Save(ctx, blobs, "index.bin"))

	data, err := blobs.ReadBlob(ctx, "index.bin")
	require.NoError(t, err)
	require.NoError(t, blobs.WriteBlob(ctx, "index.bin", data[:len(data)-5]))

	reloaded, err := New(domain.MetricDot, "m")
	require.NoError(t, err)
	err = reloaded.Load(ctx, blobs, "index.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestLoad_OversizedDimsHeader(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	idx := buildIndex(t, domain.MetricDot,
		chunk("a", []float32{1, 2, 3}, nil),
		chunk("b", []float32{4, 5, 6}, nil),
	)
	require.NoError(t, idx.Save(ctx, blobs, "index.bin"))

	// The dims field sits after magic, version and metric code. A
	// hostile value must be rejected before the slab is allocated.
	data, err := blobs.ReadBlob(ctx, "index.bin")
	require.NoError(t, err)
	data[7], data[8], data[9], data[10] = 0xFF, 0xFF, 0xFF, 0xFF
	require.NoError(t, blobs.WriteBlob(ctx, "index.bin", data))

	reloaded, err := New(domain.MetricDot, "m")
	require.NoError(t, err)
	err = reloaded.Load(ctx, blobs, "index.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestConcurrentSearchDuringLoad(t *testing.T) {
	ctx := context.Background()
	blobs := newMemBlobs()

	cosine := buildIndex(t, domain.MetricCosine,
		chunk("a", []float32{1, 0, 0}, nil),
		chunk("b", []float32{0, 1, 0}, nil),
	)
	require.NoError(t, cosine.Save(ctx, blobs, "cosine.bin"))

	dot := buildIndex(t, domain.MetricDot,
		chunk("c", []float32{0, 0, 1}, nil),
		chunk("d", []float32{1, 1, 0}, nil),
	)
	require.NoError(t, dot.Save(ctx, blobs, "dot.bin"))

	idx, err := New(domain.MetricCosine, "m")
	require.NoError(t, err)
	require.NoError(t, idx.Load(ctx, blobs, "cosine.bin"))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			path := "cosine.bin"
			if i%2 == 1 {
				path = "dot.bin"
			}
			assert.NoError(t, idx.Load(ctx, blobs, path))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 400; i++ {
			hits, err := idx.Search(ctx, []float32{1, 0.5, 0.25}, 4, -1, nil)
			assert.NoError(t, err)
			assert.Len(t, hits, 2)
			_ = idx.Metric()
			_ = idx.ModelName()
		}
	}()

	wg.Wait()
}
