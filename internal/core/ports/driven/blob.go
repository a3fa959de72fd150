package driven

import "context"

// BlobStore persists opaque byte blobs, keyed by path. The vector
// index snapshot is written and read through this port.
type BlobStore interface {
	// WriteBlob stores bytes at the given path, replacing any
	// existing blob atomically.
	WriteBlob(ctx context.Context, path string, data []byte) error

	// ReadBlob retrieves the bytes at the given path. A missing blob
	// returns domain.ErrNotFound.
	ReadBlob(ctx context.Context, path string) ([]byte, error)
}
