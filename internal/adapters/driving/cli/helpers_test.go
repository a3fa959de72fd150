package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/corpora-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// fakeQueryService implements driving.QueryService for command tests.
type fakeQueryService struct {
	answer      *domain.Answer
	results     []domain.RetrievalResult
	askErr      error
	retrieveErr error
	lastQuery   string
	lastOpts    domain.QueryOptions
}

func (f *fakeQueryService) Retrieve(_ context.Context, query string, opts domain.QueryOptions) ([]domain.RetrievalResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	return f.results, f.retrieveErr
}

func (f *fakeQueryService) Ask(_ context.Context, query string, opts domain.QueryOptions) (*domain.Answer, error) {
	f.lastQuery = query
	f.lastOpts = opts
	return f.answer, f.askErr
}

// fakeIngestService implements driving.IngestOrchestrator.
type fakeIngestService struct {
	report     *domain.IngestReport
	err        error
	lastSource string
	lastIndex  string
}

func (f *fakeIngestService) Ingest(_ context.Context, sourceDir, indexDir string) (*domain.IngestReport, error) {
	f.lastSource = sourceDir
	f.lastIndex = indexDir
	return f.report, f.err
}

// setupTestServices installs fakes and a default configuration,
// returning a cleanup that restores the package state.
func setupTestServices(t *testing.T, query *fakeQueryService, ingest *fakeIngestService) {
	t.Helper()

	cfg, err := configfile.Load(t.TempDir())
	require.NoError(t, err)

	cliConfig = cfg
	if query != nil {
		queryService = query
	}
	if ingest != nil {
		ingestService = ingest
	}

	t.Cleanup(func() {
		cliConfig = nil
		queryService = nil
		ingestService = nil
		queryIndexName = "default"
		queryTopK = 0
		queryThreshold = 0
		// Flag presence is sticky across Execute calls.
		queryCmd.Flags().Lookup("threshold").Changed = false
		queryNoLLM = false
		queryJSON = false
		ingestIndexName = "default"
		ingestWatch = false
		ingestWorkers = 0
		rootCmd.SetArgs(nil)
	})
}

func healthyReport() *domain.IngestReport {
	return &domain.IngestReport{
		DocumentsSeen:   2,
		DocumentsLoaded: 2,
		ChunksIndexed:   7,
		Duration:        42 * time.Millisecond,
	}
}
