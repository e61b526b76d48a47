package sqlite

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressPayload zstd-compresses (SpeedDefault, zstd's level-3 equivalent,
// general-purpose block mode) raw HTML before it is written to
// snapshots.raw_payload. A nil/empty input (e.g. a shell-engine fetch with
// no HTML) round-trips to nil.
func compressPayload(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("sqlite: new zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw))), nil
}

// decompressPayload reverses compressPayload.
func decompressPayload(compressed []byte) ([]byte, error) {
	if len(compressed) == 0 {
		return nil, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: new zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: zstd decode: %w", err)
	}
	return out, nil
}
