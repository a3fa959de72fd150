package splitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
)

func testDoc(content string) *domain.Document {
	return &domain.Document{
		ID:       "doc-1",
		URI:      "/corpus/doc1.txt",
		Content:  content,
		Metadata: map[string]string{"lang": "en"},
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals chunk size", 100, 100},
		{"overlap exceeds chunk size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.chunkSize, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestSplit_ShortDocumentYieldsOneChunk(t *testing.T) {
	s, err := New(100, 10)
	require.NoError(t, err)

	doc := testDoc("short document")
	chunks, err := s.Split(context.Background(), doc)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len([]rune(doc.Content)), chunks[0].End)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestSplit_EmptyDocument(t *testing.T) {
	s, err := New(100, 0)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), testDoc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_HardCutSizes(t *testing.T) {
	// 250 characters with no boundaries: exactly 3 chunks of 100, 100, 50.
	s, err := New(100, 0)
	require.NoError(t, err)

	content := strings.Repeat("a", 250)
	chunks, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Content, 100)
	assert.Len(t, chunks[1].Content, 100)
	assert.Len(t, chunks[2].Content, 50)
}

func TestSplit_RoundTripReconstruction(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		content   string
	}{
		{"no overlap plain", 50, 0, strings.Repeat("x", 220)},
		{"with overlap plain", 50, 10, strings.Repeat("y", 333)},
		{"with sentences", 60, 12, "First sentence here. Second one follows. " +
			strings.Repeat("Another thought arrives. ", 12) + "The end."},
		{"with paragraphs", 80, 20, "Opening paragraph text that runs on for a while here.\n\n" +
			"Second paragraph continues the discussion at some length.\n\n" +
			"Third paragraph closes out the document with final words."},
		{"unicode", 40, 8, strings.Repeat("héllo wörld. ", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.chunkSize, tt.overlap)
			require.NoError(t, err)

			chunks, err := s.Split(context.Background(), testDoc(tt.content))
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			// Non-overlapping spans reconstruct the text exactly.
			var b strings.Builder
			for i, c := range chunks {
				runes := []rune(c.Content)
				if i == 0 {
					b.WriteString(c.Content)
				} else {
					b.WriteString(string(runes[tt.overlap:]))
				}
			}
			assert.Equal(t, tt.content, b.String())
		})
	}
}

func TestSplit_OverlapCarriedBetweenChunks(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	content := strings.Repeat("abcde", 40) // 200 chars, no boundaries
	chunks, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		tail := string(prev[len(prev)-10:])
		head := string(cur[:10])
		assert.Equal(t, tail, head, "chunk %d head must repeat chunk %d tail", i, i-1)
		assert.Equal(t, chunks[i-1].End-10, chunks[i].Start)
	}
}

func TestSplit_MonotonicOffsets(t *testing.T) {
	s, err := New(64, 16)
	require.NoError(t, err)

	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)

	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
		assert.Greater(t, chunks[i].End, chunks[i-1].End)
		assert.Equal(t, i, chunks[i].Position)
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	s, err := New(100, 0)
	require.NoError(t, err)

	// The paragraph break falls inside the tolerance window, so the
	// first chunk should end right after the blank line rather than
	// at the hard limit.
	first := strings.Repeat("a", 88)
	content := first + "\n\n" + strings.Repeat("b", 120)
	chunks, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, first+"\n\n", chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "b"))
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	s, err := New(100, 0)
	require.NoError(t, err)

	// No paragraph break, but a sentence ends inside the window.
	first := strings.Repeat("a", 90) + ". "
	content := first + strings.Repeat("b", 120)
	chunks, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "b"))
}

func TestSplit_InheritsDocumentMetadata(t *testing.T) {
	s, err := New(100, 0)
	require.NoError(t, err)

	chunks, err := s.Split(context.Background(), testDoc(strings.Repeat("z", 150)))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.Equal(t, "en", c.Metadata["lang"])
		assert.NotEmpty(t, c.ID)
	}
}

func TestSplit_ChunkIDsAreStableAcrossRuns(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	content := strings.Repeat("The sky is blue. ", 30)
	first, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)
	second, err := s.Split(context.Background(), testDoc(content))
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	seen := make(map[string]bool)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.False(t, seen[first[i].ID])
		seen[first[i].ID] = true
	}
}
