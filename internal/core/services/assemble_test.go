package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func result(id, citation, content string) domain.RetrievalResult {
	return domain.RetrievalResult{ChunkID: id, Citation: citation, Content: content}
}

func TestAssemble_NoResults(t *testing.T) {
	a, err := NewContextAssembler(512)
	require.NoError(t, err)

	assert.Equal(t, NoContextNotice, a.Assemble(nil))
	assert.Equal(t, NoContextNotice, a.Assemble([]domain.RetrievalResult{}))
}

func TestAssemble_CitationsAndOrdinals(t *testing.T) {
	a, err := NewContextAssembler(512)
	require.NoError(t, err)

	out := a.Assemble([]domain.RetrievalResult{
		result("c1", "/corpus/sky.txt#0", "The sky is blue."),
		result("c2", "/corpus/grass.txt#2", "Grass is green."),
	})

	assert.Contains(t, out, "[1] /corpus/sky.txt#0\nThe sky is blue.")
	assert.Contains(t, out, "[2] /corpus/grass.txt#2\nGrass is green.")
	assert.Contains(t, out, "\n\n")
}

func TestAssemble_FallsBackToChunkIDWithoutCitation(t *testing.T) {
	a, err := NewContextAssembler(512)
	require.NoError(t, err)

	out := a.Assemble([]domain.RetrievalResult{result("chunk-7", "", "Some text.")})
	assert.Contains(t, out, "[1] chunk-7\nSome text.")
}

func TestAssemble_StopsAtTokenBudget(t *testing.T) {
	// Each block costs roughly (len(content)+len(header))/4 tokens.
	big := strings.Repeat("a", 400)

	a, err := NewContextAssembler(120)
	require.NoError(t, err)

	out := a.Assemble([]domain.RetrievalResult{
		result("c1", "u1#0", big),
		result("c2", "u2#0", big),
		result("c3", "u3#0", big),
	})

	assert.Contains(t, out, "[1] u1#0")
	assert.NotContains(t, out, "[2]")
	assert.NotContains(t, out, "[3]")
	assert.LessOrEqual(t, EstimateTokens(out), 120)
}

func TestAssemble_TruncatesOversizedFirstResult(t *testing.T) {
	huge := strings.Repeat("b", 4000)

	a, err := NewContextAssembler(50)
	require.NoError(t, err)

	out := a.Assemble([]domain.RetrievalResult{result("c1", "u1#0", huge)})

	assert.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(out, "[1] u1#0\n"))
	assert.LessOrEqual(t, EstimateTokens(out), 50)
}

func TestAssemble_PreservesResultOrder(t *testing.T) {
	a, err := NewContextAssembler(512)
	require.NoError(t, err)

	out := a.Assemble([]domain.RetrievalResult{
		result("c1", "first#0", "alpha"),
		result("c2", "second#0", "beta"),
		result("c3", "third#0", "gamma"),
	})

	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))
	assert.Less(t, strings.Index(out, "second"), strings.Index(out, "third"))
}

func TestNewContextAssembler_InvalidBudget(t *testing.T) {
	for _, budget := range []int{0, -1} {
		_, err := NewContextAssembler(budget)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 1, EstimateTokens("four"))
	assert.Equal(t, 2, EstimateTokens("fives"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}
