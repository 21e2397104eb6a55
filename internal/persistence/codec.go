package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"
)

var magic = [4]byte{'A', 'I', 'D', 'L'}

const headerSize = len(magic) + 32

// Encode serializes s as magic | blake3-256(payload) | lz4(json).
func Encode(s Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	var payload bytes.Buffer
	zw := lz4.NewWriter(&payload)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}

	sum := blake3.Sum256(payload.Bytes())
	out := make([]byte, 0, headerSize+payload.Len())
	out = append(out, magic[:]...)
	out = append(out, sum[:]...)
	out = append(out, payload.Bytes()...)
	return out, nil
}

// Decode verifies and parses a blob produced by Encode. Any framing, hash,
// compression or JSON failure is reported as ErrCorruptSnapshot.
func Decode(blob []byte) (Snapshot, error) {
	if len(blob) < headerSize || !bytes.Equal(blob[:len(magic)], magic[:]) {
		return Snapshot{}, fmt.Errorf("%w: bad header", ErrCorruptSnapshot)
	}
	payload := blob[headerSize:]
	sum := blake3.Sum256(payload)
	if !bytes.Equal(sum[:], blob[len(magic):headerSize]) {
		return Snapshot{}, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}

	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decompress: %v", ErrCorruptSnapshot, err)
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if s.Version < VersionLegacy || s.Version > Version {
		return Snapshot{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptSnapshot, s.Version)
	}
	return s, nil
}
