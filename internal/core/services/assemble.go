package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

// NoContextNotice is the context emitted when retrieval found no
// supporting chunks. The generator receives it verbatim so the model
// knows the corpus had nothing to offer.
const NoContextNotice = "(no supporting context was retrieved from the corpus)"

// ContextAssembler packs retrieval results into a token-budgeted
// context string with per-chunk citations.
type ContextAssembler struct {
	maxTokens int
}

// NewContextAssembler creates an assembler with the given token
// budget.
func NewContextAssembler(maxTokens int) (*ContextAssembler, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max context tokens must be positive, got %d",
			domain.ErrInvalidConfig, maxTokens)
	}
	return &ContextAssembler{maxTokens: maxTokens}, nil
}

// Assemble builds the context from results in their given (descending
// score) order, accumulating token cost and stopping before the
// budget is exceeded. A first result that alone exceeds the budget is
// truncated to fit so the context is never empty when results exist.
func (a *ContextAssembler) Assemble(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return NoContextNotice
	}

	var b strings.Builder
	remaining := a.maxTokens

	for i, r := range results {
		block := formatBlock(i+1, r)
		cost := EstimateTokens(block)

		if cost > remaining {
			if i > 0 {
				break
			}
			block = truncateToTokens(block, remaining)
			b.WriteString(block)
			break
		}

		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		remaining -= cost
	}

	return b.String()
}

// formatBlock renders one retrieval result with its citation.
func formatBlock(ordinal int, r domain.RetrievalResult) string {
	citation := r.Citation
	if citation == "" {
		citation = r.ChunkID
	}
	return fmt.Sprintf("[%d] %s\n%s", ordinal, citation, r.Content)
}

// EstimateTokens approximates the token cost of text. The pipeline
// budgets on a chars/4 heuristic rather than a model tokenizer; the
// ratio holds closely enough for English prose.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// truncateToTokens cuts text so its estimated cost fits the budget,
// respecting rune boundaries.
func truncateToTokens(text string, budget int) string {
	maxChars := budget * 4
	if len(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	out := string(runes)
	for len(out) > maxChars {
		runes = runes[:len(runes)-1]
		out = string(runes)
	}
	return out
}
