// Package file loads the corpora configuration from a TOML file with
// environment variable overrides.
//
// Resolution order: built-in defaults, then ~/.corpora/config.toml
// (if present), then CORPORA_* environment variables.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// ConfigFileName is the configuration file name inside the config
// directory.
const ConfigFileName = "config.toml"

// Config is the full CLI configuration.
type Config struct {
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	Storage   StorageConfig   `toml:"storage"`
}

// PipelineConfig mirrors domain.PipelineConfig in TOML form.
type PipelineConfig struct {
	ChunkSize           int     `toml:"chunk_size" env:"CORPORA_CHUNK_SIZE"`
	ChunkOverlap        int     `toml:"chunk_overlap" env:"CORPORA_CHUNK_OVERLAP"`
	Metric              string  `toml:"metric" env:"CORPORA_METRIC"`
	TopK                int     `toml:"top_k" env:"CORPORA_TOP_K"`
	SimilarityThreshold float64 `toml:"similarity_threshold" env:"CORPORA_SIMILARITY_THRESHOLD"`
	MaxContextTokens    int     `toml:"max_context_tokens" env:"CORPORA_MAX_CONTEXT_TOKENS"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Model      string `toml:"model" env:"CORPORA_EMBEDDING_MODEL"`
	APIKey     string `toml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL    string `toml:"base_url" env:"CORPORA_EMBEDDING_BASE_URL"`
	Dimensions int    `toml:"dimensions" env:"CORPORA_EMBEDDING_DIMENSIONS"`
}

// LLMConfig selects and configures the generation backend.
type LLMConfig struct {
	Model   string `toml:"model" env:"CORPORA_LLM_MODEL"`
	APIKey  string `toml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string `toml:"base_url" env:"CORPORA_LLM_BASE_URL"`
}

// StorageConfig locates the corpus database and index snapshots.
type StorageConfig struct {
	DataDir  string `toml:"data_dir" env:"CORPORA_DATA_DIR"`
	IndexDir string `toml:"index_dir" env:"CORPORA_INDEX_DIR"`
}

// DefaultConfigDir returns ~/.corpora.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".corpora"), nil
}

// defaults returns the built-in configuration.
func defaults() Config {
	pipeline := domain.DefaultPipelineConfig()
	return Config{
		Pipeline: PipelineConfig{
			ChunkSize:           pipeline.ChunkSize,
			ChunkOverlap:        pipeline.ChunkOverlap,
			Metric:              string(pipeline.Metric),
			TopK:                pipeline.TopK,
			SimilarityThreshold: pipeline.SimilarityThreshold,
			MaxContextTokens:    pipeline.MaxContextTokens,
		},
	}
}

// Load reads the configuration from configDir, applying defaults and
// environment overrides. If configDir is empty, DefaultConfigDir is
// used. A missing config file is not an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	cfg := defaults()

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to configDir as TOML.
func Save(configDir string, cfg *Config) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	path := filepath.Join(configDir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// PipelineConfig converts the TOML pipeline section into the domain
// configuration, validated.
func (c *Config) PipelineConfig() (domain.PipelineConfig, error) {
	metric, err := domain.ParseMetric(c.Pipeline.Metric)
	if err != nil {
		return domain.PipelineConfig{}, err
	}

	cfg := domain.PipelineConfig{
		ChunkSize:           c.Pipeline.ChunkSize,
		ChunkOverlap:        c.Pipeline.ChunkOverlap,
		EmbeddingModel:      c.Embedding.Model,
		Metric:              metric,
		TopK:                c.Pipeline.TopK,
		SimilarityThreshold: c.Pipeline.SimilarityThreshold,
		MaxContextTokens:    c.Pipeline.MaxContextTokens,
	}
	if err := cfg.Validate(); err != nil {
		return domain.PipelineConfig{}, err
	}
	return cfg, nil
}
