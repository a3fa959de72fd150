package flat

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/custodia-labs/corpora-cli/internal/core/domain"
	"github.com/custodia-labs/corpora-cli/internal/core/ports/driven"
)

// Snapshot blob layout, little endian throughout:
//
//	magic "CPIX" | version u16 | metric u8 | dims u32 | count u32
//	model name   (u16 length + bytes)
//	entry table  (u32 length + JSON array of entries)
//	vector slab  (count*dims float32)
const (
	blobMagic   = "CPIX"
	blobVersion = uint16(1)
)

var metricCodes = map[domain.SimilarityMetric]uint8{
	domain.MetricCosine: 0,
	domain.MetricDot:    1,
}

// Save persists the current snapshot through the blob store.
// Entry metadata round-trips exactly; vectors round-trip bit-for-bit,
// so a reloaded index reproduces identical rankings.
func (idx *Index) Save(ctx context.Context, blobs driven.BlobStore, path string) error {
	snap := idx.snap.Load()

	metaJSON, err := json.Marshal(snap.entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(metaJSON) + len(snap.vectors)*4 + 64)
	buf.WriteString(blobMagic)
	writeU16(&buf, blobVersion)
	buf.WriteByte(metricCodes[snap.metric])
	writeU32(&buf, uint32(snap.dims))
	writeU32(&buf, uint32(len(snap.entries)))
	writeU16(&buf, uint16(len(snap.modelName)))
	buf.WriteString(snap.modelName)
	writeU32(&buf, uint32(len(metaJSON)))
	buf.Write(metaJSON)
	for _, v := range snap.vectors {
		writeU32(&buf, math.Float32bits(v))
	}

	if err := blobs.WriteBlob(ctx, path, buf.Bytes()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load replaces the snapshot with a persisted one. The stored metric
// and model name take over this handle; callers verify them against
// the active embedder. A missing blob maps to domain.ErrIndexNotFound
// and any decode failure to domain.ErrIndexCorrupt.
func (idx *Index) Load(ctx context.Context, blobs driven.BlobStore, path string) error {
	data, err := blobs.ReadBlob(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	r := bytes.NewReader(data)

	magic := make([]byte, len(blobMagic))
	if _, err := r.Read(magic); err != nil || string(magic) != blobMagic {
		return fmt.Errorf("%w: bad magic", domain.ErrIndexCorrupt)
	}
	version, err := readU16(r)
	if err != nil || version != blobVersion {
		return fmt.Errorf("%w: unsupported version %d", domain.ErrIndexCorrupt, version)
	}
	metricCode, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated header", domain.ErrIndexCorrupt)
	}
	var metric domain.SimilarityMetric
	switch metricCode {
	case 0:
		metric = domain.MetricCosine
	case 1:
		metric = domain.MetricDot
	default:
		return fmt.Errorf("%w: unknown metric code %d", domain.ErrIndexCorrupt, metricCode)
	}

	dims, err := readU32(r)
	if err != nil {
		return fmt.Errorf("%w: truncated header", domain.ErrIndexCorrupt)
	}
	count, err := readU32(r)
	if err != nil {
		return fmt.Errorf("%w: truncated header", domain.ErrIndexCorrupt)
	}

	nameLen, err := readU16(r)
	if err != nil {
		return fmt.Errorf("%w: truncated header", domain.ErrIndexCorrupt)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := readFull(r, nameBytes); err != nil {
		return fmt.Errorf("%w: truncated model name", domain.ErrIndexCorrupt)
	}

	metaLen, err := readU32(r)
	if err != nil {
		return fmt.Errorf("%w: truncated header", domain.ErrIndexCorrupt)
	}
	if uint64(metaLen) > uint64(r.Len()) {
		return fmt.Errorf("%w: entry table length %d exceeds blob", domain.ErrIndexCorrupt, metaLen)
	}
	metaJSON := make([]byte, metaLen)
	if _, err := readFull(r, metaJSON); err != nil {
		return fmt.Errorf("%w: truncated entry table", domain.ErrIndexCorrupt)
	}
	var entries []entry
	if err := json.Unmarshal(metaJSON, &entries); err != nil {
		return fmt.Errorf("%w: entry table: %v", domain.ErrIndexCorrupt, err)
	}
	if uint32(len(entries)) != count {
		return fmt.Errorf("%w: entry count %d does not match header %d",
			domain.ErrIndexCorrupt, len(entries), count)
	}

	// The slab must account for every remaining byte before anything
	// is allocated from the header fields.
	want := uint64(count) * uint64(dims) * 4
	if uint64(r.Len()) != want {
		return fmt.Errorf("%w: vector slab has %d bytes, header implies %d",
			domain.ErrIndexCorrupt, r.Len(), want)
	}

	vectors := make([]float32, int(count)*int(dims))
	for i := range vectors {
		bits, err := readU32(r)
		if err != nil {
			return fmt.Errorf("%w: truncated vector slab", domain.ErrIndexCorrupt)
		}
		vectors[i] = math.Float32frombits(bits)
	}

	idx.mu.Lock()
	idx.snap.Store(&snapshot{
		metric:    metric,
		modelName: string(nameBytes),
		dims:      int(dims),
		entries:   entries,
		vectors:   vectors,
	})
	idx.mu.Unlock()
	return nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err == nil && n < len(b) {
		return n, errors.New("short read")
	}
	return n, err
}
