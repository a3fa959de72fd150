package domain

import "time"

// Document represents a source document with metadata.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full normalised text content.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs. Insertion order
	// is irrelevant; filters match on exact key/value pairs.
	Metadata map[string]string

	// IngestedAt is when the document entered the pipeline.
	IngestedAt time.Time
}

// Chunk represents an embedded text span within a document.
// Documents are split into chunks for granular retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk, including any
	// overlap carried over from the preceding chunk.
	Content string

	// Start and End are rune offsets of the span within the parent
	// document's content. Start offsets are monotonic within a
	// document; consecutive spans overlap by at most the configured
	// chunk overlap.
	Start int
	End   int

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation. All chunks in one
	// index share the same dimension.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs, inherited
	// from the parent document and augmented during splitting.
	Metadata map[string]string
}

// LoadFailure records a single document that could not be loaded or
// parsed. Load failures are reported, never fatal for the run.
type LoadFailure struct {
	// URI is the location of the document that failed.
	URI string

	// Err is the underlying failure.
	Err error
}

// IngestReport aggregates the outcome of one ingest run.
// Per-document failures are collected here rather than aborting the run.
type IngestReport struct {
	// DocumentsSeen is the number of documents the source yielded,
	// including those that failed to load.
	DocumentsSeen int

	// DocumentsLoaded is the number of documents successfully loaded.
	DocumentsLoaded int

	// DocumentsFailed is the number of documents that failed to load
	// or embed.
	DocumentsFailed int

	// ChunksIndexed is the total number of chunks added to the index.
	ChunksIndexed int

	// Failures lists the individual per-document failures.
	Failures []LoadFailure

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Failed reports whether any document failed during the run.
func (r *IngestReport) Failed() bool {
	return r.DocumentsFailed > 0
}
