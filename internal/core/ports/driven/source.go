package driven

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// DocumentSource loads documents from an external location. File
// format parsing is the adapter's concern; the core only sees
// normalised documents.
type DocumentSource interface {
	// LoadAll reads every document under the source directory.
	// Individual documents that fail to load or parse are skipped
	// and reported as failures; only an unreadable source directory
	// is an error.
	LoadAll(ctx context.Context, dir string) ([]domain.Document, []domain.LoadFailure, error)
}

// SourceWatcher extends a DocumentSource with change notification.
// Adapters that cannot watch simply do not implement it.
type SourceWatcher interface {
	// Watch emits on the returned channel whenever the source
	// directory changes, debounced. The channel is closed when ctx
	// is cancelled.
	Watch(ctx context.Context, dir string) (<-chan struct{}, error)
}

// Splitter divides a document's content into ordered chunks.
type Splitter interface {
	// Name returns the splitter name for logging.
	Name() string

	// Split produces the ordered chunks of the document. Chunk
	// spans are monotonic and reconstruct the document content.
	Split(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
