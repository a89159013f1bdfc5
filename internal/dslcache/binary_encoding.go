package dslcache

import (
	"encoding/binary"
	"fmt"
)

// This file holds Entry's own length-prefixed binary encoding, in the
// style of internal/tunascript/binary.go's hand-rolled encBinaryInt/
// decBinaryInt/encBinaryString helpers: every variable-length value is
// preceded by an 8-byte varint giving its length.

func encBinaryInt(i int) []byte {
	enc := make([]byte, 8)
	binary.PutVarint(enc, int64(i))
	return enc
}

// decBinaryInt always consumes 8 bytes, returning the decoded value and
// the number of bytes read.
func decBinaryInt(data []byte) (int, int, error) {
	if len(data) < 8 {
		return 0, 0, fmt.Errorf("data does not contain 8 bytes")
	}
	val, read := binary.Varint(data[:8])
	if read == 0 {
		return 0, 0, fmt.Errorf("input buffer too small, should never happen")
	} else if read < 0 {
		return 0, 0, fmt.Errorf("input buffer contains value larger than 64 bits, should never happen")
	}
	return int(val), 8, nil
}

func encBinaryBytes(b []byte) []byte {
	return append(encBinaryInt(len(b)), b...)
}

func decBinaryBytes(data []byte) ([]byte, int, error) {
	count, read, err := decBinaryInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding byte count: %w", err)
	}
	data = data[read:]
	if count < 0 {
		return nil, 0, fmt.Errorf("byte count < 0")
	}
	if len(data) < count {
		return nil, 0, fmt.Errorf("unexpected end of data")
	}
	out := make([]byte, count)
	copy(out, data[:count])
	return out, read + count, nil
}

func encBinaryIntSlice(s []int) []byte {
	enc := encBinaryInt(len(s))
	for _, v := range s {
		enc = append(enc, encBinaryInt(v)...)
	}
	return enc
}

func decBinaryIntSlice(data []byte) ([]int, int, error) {
	count, read, err := decBinaryInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding slice count: %w", err)
	}
	data = data[read:]
	if count < 0 {
		return nil, 0, fmt.Errorf("slice count < 0")
	}
	if count == 0 {
		return nil, read, nil
	}

	out := make([]int, count)
	for i := 0; i < count; i++ {
		v, n, err := decBinaryInt(data)
		if err != nil {
			return nil, 0, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
		data = data[n:]
		read += n
	}
	return out, read, nil
}
