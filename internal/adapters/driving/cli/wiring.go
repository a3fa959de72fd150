package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/blob/file"
	configfile "github.com/custodia-labs/corpora-cli/internal/adapters/driven/config/file"
	hashembed "github.com/custodia-labs/corpora-cli/internal/adapters/driven/embedding/hash"
	openaiembed "github.com/custodia-labs/corpora-cli/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/corpora-cli/internal/adapters/driven/llm/openai"
	staticllm "github.com/custodia-labs/corpora-cli/internal/adapters/driven/llm/static"
	"github.com/custodia-labs/corpora-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
	"github.com/custodia-labs/corpora-cli/internal/logger"
	"github.com/custodia-labs/corpora-cli/internal/splitter"
)

// pingTimeout bounds the startup capability probe.
const pingTimeout = 10 * time.Second

// timeRounding trims report durations for display.
const timeRounding = time.Millisecond

// newSplitter builds the text splitter from the pipeline
// configuration.
func newSplitter(cfg domain.PipelineConfig) (driven.Splitter, error) {
	return splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
}

// buildEmbedder selects the embedding backend. With an API key
// configured and reachable, OpenAI is used; otherwise the
// deterministic hash fallback keeps the pipeline runnable.
func buildEmbedder(ctx context.Context) driven.EmbeddingService {
	if cliConfig.Embedding.APIKey == "" {
		logger.Warn("No embedding API key configured, using hash fallback embeddings")
		return hashembed.NewEmbeddingService(cliConfig.Embedding.Dimensions)
	}

	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     cliConfig.Embedding.APIKey,
		BaseURL:    cliConfig.Embedding.BaseURL,
		Model:      cliConfig.Embedding.Model,
		Dimensions: cliConfig.Embedding.Dimensions,
	})
	if err != nil {
		logger.Warn("Embedding service unavailable (%v), using hash fallback", err)
		return hashembed.NewEmbeddingService(cliConfig.Embedding.Dimensions)
	}

	probeCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(probeCtx); err != nil {
		logger.Warn("Embedding service unreachable (%v), using hash fallback", err)
		return hashembed.NewEmbeddingService(cliConfig.Embedding.Dimensions)
	}

	logger.Debug("Using OpenAI embeddings: %s", svc.ModelName())
	return svc
}

// buildLLM selects the generation backend. Without a reachable API
// the static fallback composes answers from retrieved context.
func buildLLM(ctx context.Context) driven.LLMService {
	if cliConfig.LLM.APIKey == "" {
		logger.Warn("No LLM API key configured, using retrieval-backed fallback answers")
		return staticllm.NewLLMService()
	}

	svc, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:  cliConfig.LLM.APIKey,
		BaseURL: cliConfig.LLM.BaseURL,
		Model:   cliConfig.LLM.Model,
	})
	if err != nil {
		logger.Warn("LLM service unavailable (%v), using retrieval-backed fallback", err)
		return staticllm.NewLLMService()
	}

	probeCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(probeCtx); err != nil {
		logger.Warn("LLM service unreachable (%v), using retrieval-backed fallback", err)
		return staticllm.NewLLMService()
	}

	logger.Debug("Using OpenAI generation: %s", svc.ModelName())
	return svc
}

// openDocStore opens the SQLite corpus database.
func openDocStore() (driven.DocumentStore, error) {
	return sqlite.NewStore(cliConfig.Storage.DataDir)
}

// openBlobStore opens the blob store holding index snapshots.
func openBlobStore() (driven.BlobStore, error) {
	root := cliConfig.Storage.IndexDir
	if root == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(dir, "indexes")
	}
	return file.NewBlobStore(root)
}

// configDir resolves the active config directory.
func configDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	return configfile.DefaultConfigDir()
}
