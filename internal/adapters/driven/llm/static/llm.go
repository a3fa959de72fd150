// Package static provides a fallback LLM service that composes an
// answer from the prompt without calling a model. It keeps the query
// pipeline runnable and testable when no API key is configured.
package static

import (
	"context"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// ModelName identifies the fallback generator.
const ModelName = "static-fallback"

// answerHeader prefixes every fallback answer so callers can tell it
// apart from model output.
const answerHeader = "[retrieval-backed answer]"

// answerFooter explains how to enable real generation.
const answerFooter = "Note: composed from retrieved context without a language model. " +
	"Set OPENAI_API_KEY to enable generated answers."

// LLMService echoes the prompt's context back as an answer.
type LLMService struct{}

// NewLLMService creates a static fallback LLM service.
func NewLLMService() *LLMService {
	return &LLMService{}
}

// Generate returns a template answer built from the prompt. The
// prompt's context and question sections are carried through verbatim
// so the caller still sees the retrieved evidence.
func (s *LLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	var b strings.Builder
	b.WriteString(answerHeader)
	b.WriteString("\n\n")
	b.WriteString(extractBody(prompt))
	b.WriteString("\n\n")
	b.WriteString(answerFooter)
	return b.String(), nil
}

// extractBody strips the instruction line and trailing "Answer:"
// cue from a generation prompt, keeping the context and question.
func extractBody(prompt string) string {
	body := prompt
	if idx := strings.Index(body, "Context:"); idx >= 0 {
		body = body[idx:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "Answer:")
	return strings.TrimSpace(body)
}

// ModelName returns the fallback model identifier.
func (s *LLMService) ModelName() string {
	return ModelName
}

// Ping always succeeds; the service has no external dependency.
func (s *LLMService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
