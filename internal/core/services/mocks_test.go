package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// keywordEmbedder is a deterministic embedder for tests. Each
// dimension counts occurrences of one keyword, so texts sharing a
// keyword land close together.
type keywordEmbedder struct {
	keywords   []string
	embedCalls int
	batchCalls int
	embedErr   error
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(e.keywords))
	for i, kw := range e.keywords {
		v[i] = float32(strings.Count(lower, kw))
	}
	return v
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.embedCalls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.batchCalls++
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int              { return len(e.keywords) }
func (e *keywordEmbedder) ModelName() string            { return "keyword-test" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	response      string
	generateErr   error
	generateCalls int
	lastPrompt    string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.generateCalls++
	m.lastPrompt = prompt
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockSource implements driven.DocumentSource for testing.
type mockSource struct {
	docs     []domain.Document
	failures []domain.LoadFailure
	loadErr  error
	calls    int
}

func (m *mockSource) LoadAll(_ context.Context, _ string) ([]domain.Document, []domain.LoadFailure, error) {
	m.calls++
	if m.loadErr != nil {
		return nil, nil, m.loadErr
	}
	return m.docs, m.failures, nil
}
