// Package splitter provides the boundary-aware text splitter that
// divides normalised document content into overlapping chunks.
package splitter

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.Splitter = (*Splitter)(nil)

// Splitter splits document content into chunks of at most chunkSize
// characters, preferring paragraph boundaries, then sentence
// boundaries, and falling back to a hard cut when no boundary exists
// within the tolerance window. The last overlap characters of one
// chunk are repeated at the head of the next.
//
// Offsets and sizes are measured in runes so multi-byte content
// splits the same way regardless of encoding width.
type Splitter struct {
	chunkSize int
	overlap   int
	tolerance int
}

// New creates a splitter with the given chunk size and overlap, both
// in characters. Parameters are validated here, before any text is
// processed.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must be non-negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidConfig, overlap, chunkSize)
	}

	// The tolerance window must stay clear of the overlap so every
	// chunk advances the cursor.
	tolerance := chunkSize / 5
	if max := chunkSize - overlap - 1; tolerance > max {
		tolerance = max
	}
	if tolerance < 0 {
		tolerance = 0
	}

	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
		tolerance: tolerance,
	}, nil
}

// Name returns the splitter name.
func (s *Splitter) Name() string {
	return "boundary"
}

// Split produces the ordered chunks of the document. A document
// shorter than the chunk size yields exactly one chunk. Chunk start
// offsets are monotonic, and consecutive spans overlap by exactly the
// configured overlap.
func (s *Splitter) Split(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc.Content == "" {
		return nil, nil
	}

	runes := []rune(doc.Content)
	n := len(runes)

	estimated := n/(s.chunkSize-s.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	position := 0
	for start < n {
		end := n
		if n-start > s.chunkSize {
			end = s.cutPoint(runes, start)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.ID, position),
			DocumentID: doc.ID,
			Content:    string(runes[start:end]),
			Start:      start,
			End:        end,
			Position:   position,
			Metadata:   inheritMetadata(doc),
		})
		position++

		if end == n {
			break
		}
		start = end - s.overlap
	}

	return chunks, nil
}

// cutPoint picks the end offset for a chunk starting at start. It
// scans the tolerance window backwards from the hard limit for a
// paragraph break first, then a sentence terminator, and falls back
// to the hard limit.
func (s *Splitter) cutPoint(runes []rune, start int) int {
	limit := start + s.chunkSize
	floor := limit - s.tolerance

	// Paragraph boundary: cut after the blank line.
	for i := limit - 1; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}

	// Sentence boundary: cut after the terminator, consuming one
	// trailing space so the next chunk starts on a word.
	for i := limit - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			end := i + 1
			if end < limit && runes[end] == ' ' {
				end++
			}
			return end
		}
	}

	return limit
}

// chunkID derives a stable chunk identifier from the document and
// chunk position, so re-splitting the same corpus reproduces the
// same IDs.
func chunkID(docID string, position int) string {
	name := fmt.Sprintf("%s:%d", docID, position)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func inheritMetadata(doc *domain.Document) map[string]string {
	md := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		md[k] = v
	}
	return md
}
