package driving

import (
	"context"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// IngestOrchestrator coordinates the build pipeline:
// load -> split -> embed -> index build -> persist.
type IngestOrchestrator interface {
	// Ingest builds and persists the index from the documents under
	// sourceDir. Per-document failures are aggregated into the
	// report rather than aborting the run.
	Ingest(ctx context.Context, sourceDir, indexDir string) (*domain.IngestReport, error)
}
