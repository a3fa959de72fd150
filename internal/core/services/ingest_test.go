package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/index/flat"
	"github.com/custodia-labs/corpora-cli/internal/splitter"
)

// memBlobs is an in-memory blob store for ingest tests.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (m *memBlobs) WriteBlob(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[path] = cp
	return nil
}

func (m *memBlobs) ReadBlob(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

// failingSplitter fails for documents whose URI contains a marker.
type failingSplitter struct {
	inner  *splitter.Splitter
	marker string
}

func (f *failingSplitter) Name() string { return "failing" }

func (f *failingSplitter) Split(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if strings.Contains(doc.URI, f.marker) {
		return nil, errors.New("malformed document")
	}
	return f.inner.Split(ctx, doc)
}

func sourceDoc(id, content string) domain.Document {
	return domain.Document{
		ID:      "doc-" + id,
		URI:     "/corpus/" + id + ".txt",
		Content: content,
	}
}

func newTestOrchestrator(t *testing.T, embedder *keywordEmbedder, source *mockSource) (*IngestOrchestrator, *flat.Index, *memory.DocumentStore, *memBlobs) {
	t.Helper()

	split, err := splitter.New(100, 20)
	require.NoError(t, err)
	idx, err := flat.New(domain.MetricCosine, embedder.ModelName())
	require.NoError(t, err)
	store := memory.NewDocumentStore()
	blobs := newMemBlobs()

	orch, err := NewIngestOrchestrator(testConfig(), source, split, embedder, idx, store, blobs)
	require.NoError(t, err)
	return orch, idx, store, blobs
}

func TestIngest_BuildsAndPersistsIndex(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky", "grass")
	source := &mockSource{docs: []domain.Document{
		sourceDoc("sky", "The sky is blue."),
		sourceDoc("grass", "Grass is green."),
	}}

	orch, idx, store, blobs := newTestOrchestrator(t, embedder, source)

	report, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsLoaded)
	assert.Equal(t, 0, report.DocumentsFailed)
	assert.Equal(t, 2, report.ChunksIndexed)
	assert.False(t, report.Failed())
	assert.Positive(t, report.Duration)

	assert.Equal(t, 2, idx.Len())

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = blobs.ReadBlob(ctx, "/indexes/default/index.cpix")
	require.NoError(t, err)
}

func TestIngest_IndexIsQueryableAfterBuild(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky", "grass")
	source := &mockSource{docs: []domain.Document{
		sourceDoc("sky", "The sky is blue."),
		sourceDoc("grass", "Grass is green."),
	}}

	orch, idx, store, _ := newTestOrchestrator(t, embedder, source)
	_, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.NoError(t, err)

	svc, err := NewQueryService(testConfig(), embedder, idx, store, nil)
	require.NoError(t, err)

	results, err := svc.Retrieve(ctx, "What color is the sky?", domain.QueryOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "sky is blue")
}

func TestIngest_LoadFailuresAreReportedNotFatal(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky")
	source := &mockSource{
		docs: []domain.Document{sourceDoc("sky", "The sky is blue.")},
		failures: []domain.LoadFailure{
			{URI: "/corpus/broken.txt", Err: errors.New("permission denied")},
		},
	}

	orch, idx, _, _ := newTestOrchestrator(t, embedder, source)

	report, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsSeen)
	assert.Equal(t, 1, report.DocumentsLoaded)
	assert.Equal(t, 1, report.DocumentsFailed)
	assert.True(t, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/corpus/broken.txt", report.Failures[0].URI)
	assert.Equal(t, 1, idx.Len())
}

func TestIngest_PerDocumentFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky", "grass")
	source := &mockSource{docs: []domain.Document{
		sourceDoc("sky", "The sky is blue."),
		sourceDoc("bad", "This document will not split."),
		sourceDoc("grass", "Grass is green."),
	}}

	split, err := splitter.New(100, 20)
	require.NoError(t, err)
	idx, err := flat.New(domain.MetricCosine, embedder.ModelName())
	require.NoError(t, err)
	store := memory.NewDocumentStore()

	orch, err := NewIngestOrchestrator(testConfig(), source,
		&failingSplitter{inner: split, marker: "bad"}, embedder, idx, store, newMemBlobs())
	require.NoError(t, err)

	report, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.NoError(t, err)

	assert.Equal(t, 3, report.DocumentsSeen)
	assert.Equal(t, 3, report.DocumentsLoaded)
	assert.Equal(t, 1, report.DocumentsFailed)
	assert.Equal(t, 2, report.ChunksIndexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/corpus/bad.txt", report.Failures[0].URI)

	// The failed document is not persisted; the healthy ones are.
	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	_, err = store.GetDocument(ctx, "doc-bad")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_EmbeddingFailureMarksDocument(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky")
	embedder.embedErr = errors.New("backend down")
	source := &mockSource{docs: []domain.Document{sourceDoc("sky", "The sky is blue.")}}

	orch, idx, _, _ := newTestOrchestrator(t, embedder, source)

	report, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsSeen)
	assert.Equal(t, 1, report.DocumentsFailed)
	assert.Equal(t, 0, report.ChunksIndexed)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrEmbedding)
	assert.Equal(t, 0, idx.Len())
}

func TestIngest_ConfigErrorBeforeAnyDocumentRead(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkOverlap = cfg.ChunkSize

	embedder := newKeywordEmbedder("sky")
	source := &mockSource{docs: []domain.Document{sourceDoc("sky", "The sky is blue.")}}
	split, err := splitter.New(100, 20)
	require.NoError(t, err)
	idx, err := flat.New(domain.MetricCosine, embedder.ModelName())
	require.NoError(t, err)

	_, err = NewIngestOrchestrator(cfg, source, split, embedder, idx,
		memory.NewDocumentStore(), newMemBlobs())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Equal(t, 0, source.calls)
}

func TestIngest_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	embedder := newKeywordEmbedder("sky", "grass", "sea")
	docs := []domain.Document{
		sourceDoc("sky", "The sky is blue. The sky is vast."),
		sourceDoc("grass", "Grass is green."),
		sourceDoc("sea", "The sea is blue like the sky."),
	}

	search := func(t *testing.T, workers int) []domain.RetrievalResult {
		t.Helper()
		source := &mockSource{docs: docs}
		orch, idx, store, _ := newTestOrchestrator(t, embedder, source)
		orch.SetWorkers(workers)

		_, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
		require.NoError(t, err)

		svc, err := NewQueryService(testConfig(), embedder, idx, store, nil)
		require.NoError(t, err)
		results, err := svc.Retrieve(ctx, "blue sky", domain.QueryOptions{TopK: 3})
		require.NoError(t, err)
		return results
	}

	first := search(t, 1)
	second := search(t, 4)
	assert.Equal(t, first, second)
}

func TestIngest_SourceErrorIsFatal(t *testing.T) {
	embedder := newKeywordEmbedder("sky")
	source := &mockSource{loadErr: errors.New("directory missing")}

	orch, _, _, _ := newTestOrchestrator(t, embedder, source)

	_, err := orch.Ingest(context.Background(), "/corpus", "/indexes/default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load documents")
}

func TestIngest_CancelledContext(t *testing.T) {
	embedder := newKeywordEmbedder("sky")
	var docs []domain.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, sourceDoc(fmt.Sprintf("d%02d", i), "The sky is blue."))
	}
	source := &mockSource{docs: docs}

	orch, _, _, _ := newTestOrchestrator(t, embedder, source)
	orch.SetWorkers(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Ingest(ctx, "/corpus", "/indexes/default")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
