package services

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driving"
	"github.com/custodia-labs/corpora-cli/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// IndexBlobName is the blob path of the vector index snapshot within
// an index directory.
const IndexBlobName = "index.cpix"

// IngestOrchestrator coordinates the build pipeline:
// load -> split -> embed -> index build -> persist.
//
// Splitting and embedding are embarrassingly parallel across
// documents and run on a bounded worker pool. The vector index is
// the single writer and serialises snapshot updates internally.
type IngestOrchestrator struct {
	cfg      domain.PipelineConfig
	source   driven.DocumentSource
	splitter driven.Splitter
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	docStore driven.DocumentStore
	blobs    driven.BlobStore
	workers  int
}

// NewIngestOrchestrator creates an ingest orchestrator. The
// configuration is validated before any document is read; an invalid
// configuration is fatal.
func NewIngestOrchestrator(
	cfg domain.PipelineConfig,
	source driven.DocumentSource,
	splitter driven.Splitter,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	docStore driven.DocumentStore,
	blobs driven.BlobStore,
) (*IngestOrchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IngestOrchestrator{
		cfg:      cfg,
		source:   source,
		splitter: splitter,
		embedder: embedder,
		index:    index,
		docStore: docStore,
		blobs:    blobs,
		workers:  runtime.NumCPU(),
	}, nil
}

// SetWorkers overrides the worker pool size for document processing.
func (o *IngestOrchestrator) SetWorkers(n int) {
	if n > 0 {
		o.workers = n
	}
}

// docResult is the outcome of processing one document on the pool.
type docResult struct {
	ordinal int
	chunks  []domain.Chunk
	failure *domain.LoadFailure
}

// Ingest builds and persists the index from the documents under
// sourceDir. Per-document failures are recorded in the report rather
// than aborting the run.
func (o *IngestOrchestrator) Ingest(ctx context.Context, sourceDir, indexDir string) (*domain.IngestReport, error) {
	defer logger.Stage("Ingest Pipeline")()
	started := time.Now()

	docs, loadFailures, err := o.source.LoadAll(ctx, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	logger.Info("Loaded %d documents from %s (%d failed)", len(docs), sourceDir, len(loadFailures))

	report := &domain.IngestReport{
		DocumentsSeen:   len(docs) + len(loadFailures),
		DocumentsLoaded: len(docs),
		DocumentsFailed: len(loadFailures),
		Failures:        loadFailures,
	}

	results, err := o.processDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}

	// Collect chunks in document order so rebuilds are idempotent.
	sort.Slice(results, func(i, j int) bool { return results[i].ordinal < results[j].ordinal })

	var chunks []domain.Chunk
	for _, r := range results {
		if r.failure != nil {
			report.DocumentsFailed++
			report.Failures = append(report.Failures, *r.failure)
			continue
		}
		chunks = append(chunks, r.chunks...)
	}
	logger.Info("Split and embedded %d chunks", len(chunks))

	if err := o.index.Build(ctx, chunks); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	report.ChunksIndexed = len(chunks)

	if err := o.persist(ctx, docs, chunks, results, indexDir); err != nil {
		return nil, err
	}

	report.Duration = time.Since(started)
	logger.Info("Ingest complete: %d chunks from %d documents in %s",
		report.ChunksIndexed, report.DocumentsLoaded, report.Duration)
	return report, nil
}

// processDocuments splits and embeds every document on a bounded
// worker pool. A failure inside one document fails only that
// document.
func (o *IngestOrchestrator) processDocuments(ctx context.Context, docs []domain.Document) ([]docResult, error) {
	sem := make(chan struct{}, o.workers)
	results := make([]docResult, 0, len(docs))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := range docs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(ordinal int, doc domain.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			res := o.processDocument(ctx, ordinal, doc)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(i, docs[i])
	}

	wg.Wait()
	return results, nil
}

// processDocument splits one document and embeds its chunks.
func (o *IngestOrchestrator) processDocument(ctx context.Context, ordinal int, doc domain.Document) docResult {
	chunks, err := o.splitter.Split(ctx, &doc)
	if err != nil {
		logger.Warn("Split failed for %s: %v", doc.URI, err)
		return docResult{ordinal: ordinal, failure: &domain.LoadFailure{URI: doc.URI, Err: err}}
	}
	if len(chunks) == 0 {
		logger.Debug("Document %s produced no chunks", doc.URI)
		return docResult{ordinal: ordinal}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Embedding failed for %s: %v", doc.URI, err)
		return docResult{ordinal: ordinal, failure: &domain.LoadFailure{
			URI: doc.URI,
			Err: fmt.Errorf("%w: %v", domain.ErrEmbedding, err),
		}}
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	logger.Debug("Document %s: %d chunks embedded", doc.URI, len(chunks))
	return docResult{ordinal: ordinal, chunks: chunks}
}

// persist writes the corpus and the index snapshot. Documents that
// failed to embed are not stored.
func (o *IngestOrchestrator) persist(ctx context.Context, docs []domain.Document, chunks []domain.Chunk, results []docResult, indexDir string) error {
	indexed := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.failure == nil {
			indexed[docIDForOrdinal(docs, r.ordinal)] = struct{}{}
		}
	}

	for i := range docs {
		if _, ok := indexed[docs[i].ID]; !ok {
			continue
		}
		if err := o.docStore.SaveDocument(ctx, &docs[i]); err != nil {
			return fmt.Errorf("save document %s: %w", docs[i].ID, err)
		}
	}
	if err := o.docStore.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	if err := o.index.Save(ctx, o.blobs, IndexBlobPath(indexDir)); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

func docIDForOrdinal(docs []domain.Document, ordinal int) string {
	if ordinal < 0 || ordinal >= len(docs) {
		return ""
	}
	return docs[ordinal].ID
}

// IndexBlobPath returns the blob key of the index snapshot inside
// indexDir.
func IndexBlobPath(indexDir string) string {
	if indexDir == "" {
		return IndexBlobName
	}
	return path.Join(indexDir, IndexBlobName)
}
