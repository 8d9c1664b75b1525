// Package binaryio implements the little-endian record framing used for
// every on-disk artifact in the index: a file is a sequence of records, each
// consisting of a 4-byte dimension separator followed by that many elements
// of the file's element type. The separator is constant across a file, and
// the record count is derived from the file size rather than trusted from a
// length field.
package binaryio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// readFramed loads the raw bytes of path and splits them into dim and the
// concatenated per-record payloads (separators stripped), validating that
// every record's separator equals the first one.
func readFramed(path string, elemSize int) (dim int, payload []byte, n int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("binaryio: read %s: %w", path, err)
	}
	if len(data) < 4 {
		return 0, nil, 0, fmt.Errorf("binaryio: %s: file too short for a dimension header", path)
	}
	dim = int(binary.LittleEndian.Uint32(data[0:4]))
	if dim < 0 {
		return 0, nil, 0, fmt.Errorf("binaryio: %s: negative dimension header", path)
	}
	recSize := 4 + dim*elemSize
	if recSize <= 0 {
		return 0, nil, 0, fmt.Errorf("binaryio: %s: zero-size record (dim=%d, elemSize=%d)", path, dim, elemSize)
	}
	if len(data)%recSize != 0 {
		return 0, nil, 0, fmt.Errorf("binaryio: %s: file size %d not a multiple of record size %d", path, len(data), recSize)
	}
	n = len(data) / recSize
	payload = make([]byte, 0, n*dim*elemSize)
	for i := 0; i < n; i++ {
		off := i * recSize
		sep := int(binary.LittleEndian.Uint32(data[off : off+4]))
		if sep != dim {
			return 0, nil, 0, fmt.Errorf("binaryio: %s: record %d separator %d != file dimension %d", path, i, sep, dim)
		}
		payload = append(payload, data[off+4:off+recSize]...)
	}
	return dim, payload, n, nil
}

func writeFramed(path string, dim int, n int, elemSize int, encodeRecord func(buf *bytes.Buffer, i int) error) error {
	var buf bytes.Buffer
	sep := make([]byte, 4)
	binary.LittleEndian.PutUint32(sep, uint32(dim))
	for i := 0; i < n; i++ {
		buf.Write(sep)
		if err := encodeRecord(&buf, i); err != nil {
			return fmt.Errorf("binaryio: encode record %d of %s: %w", i, path, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("binaryio: write %s: %w", path, err)
	}
	return nil
}

// WriteFloat32Records writes len(records) records, each of length dim, as
// float32 elements.
func WriteFloat32Records(path string, dim int, records [][]float32) error {
	return writeFramed(path, dim, len(records), 4, func(buf *bytes.Buffer, i int) error {
		rec := records[i]
		if len(rec) != dim {
			return fmt.Errorf("record has length %d, want %d", len(rec), dim)
		}
		for _, v := range rec {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFloat32Records reads a file written by WriteFloat32Records.
func ReadFloat32Records(path string) (dim int, records [][]float32, err error) {
	dim, payload, n, err := readFramed(path, 4)
	if err != nil {
		return 0, nil, err
	}
	records = make([][]float32, n)
	for i := 0; i < n; i++ {
		rec := make([]float32, dim)
		base := i * dim * 4
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(payload[base+j*4 : base+j*4+4])
			rec[j] = math.Float32frombits(bits)
		}
		records[i] = rec
	}
	return dim, records, nil
}

// WriteUint8Records writes len(records) records, each of length dim, as raw bytes.
func WriteUint8Records(path string, dim int, records [][]byte) error {
	return writeFramed(path, dim, len(records), 1, func(buf *bytes.Buffer, i int) error {
		rec := records[i]
		if len(rec) != dim {
			return fmt.Errorf("record has length %d, want %d", len(rec), dim)
		}
		buf.Write(rec)
		return nil
	})
}

// ReadUint8Records reads a file written by WriteUint8Records.
func ReadUint8Records(path string) (dim int, records [][]byte, err error) {
	dim, payload, n, err := readFramed(path, 1)
	if err != nil {
		return 0, nil, err
	}
	records = make([][]byte, n)
	for i := 0; i < n; i++ {
		rec := make([]byte, dim)
		copy(rec, payload[i*dim:(i+1)*dim])
		records[i] = rec
	}
	return dim, records, nil
}

// WriteUint32Records writes len(records) records, each of length dim, as
// 32-bit unsigned ids (the .ivecs ground-truth-neighbor-list shape).
func WriteUint32Records(path string, dim int, records [][]uint32) error {
	return writeFramed(path, dim, len(records), 4, func(buf *bytes.Buffer, i int) error {
		rec := records[i]
		if len(rec) != dim {
			return fmt.Errorf("record has length %d, want %d", len(rec), dim)
		}
		for _, v := range rec {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadUint32Records reads a file written by WriteUint32Records.
func ReadUint32Records(path string) (dim int, records [][]uint32, err error) {
	dim, payload, n, err := readFramed(path, 4)
	if err != nil {
		return 0, nil, err
	}
	records = make([][]uint32, n)
	for i := 0; i < n; i++ {
		rec := make([]uint32, dim)
		base := i * dim * 4
		for j := 0; j < dim; j++ {
			rec[j] = binary.LittleEndian.Uint32(payload[base+j*4 : base+j*4+4])
		}
		records[i] = rec
	}
	return dim, records, nil
}

// WriteUint32Record writes a single record of len(vec) 32-bit unsigned ids.
func WriteUint32Record(path string, vec []uint32) error {
	return writeFramed(path, len(vec), 1, 4, func(buf *bytes.Buffer, _ int) error {
		for _, v := range vec {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadUint32Record reads the single record written by WriteUint32Record.
func ReadUint32Record(path string) (vec []uint32, err error) {
	dim, payload, n, err := readFramed(path, 4)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, fmt.Errorf("binaryio: %s: expected exactly 1 record, got %d", path, n)
	}
	vec = make([]uint32, dim)
	for j := 0; j < dim; j++ {
		vec[j] = binary.LittleEndian.Uint32(payload[j*4 : j*4+4])
	}
	return vec, nil
}

// WriteUint64Record writes a single record of len(vec) 64-bit unsigned counters.
func WriteUint64Record(path string, vec []uint64) error {
	return writeFramed(path, len(vec), 1, 8, func(buf *bytes.Buffer, _ int) error {
		for _, v := range vec {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadUint64Record reads the single record written by WriteUint64Record.
func ReadUint64Record(path string) (vec []uint64, err error) {
	dim, payload, n, err := readFramed(path, 8)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		return nil, fmt.Errorf("binaryio: %s: expected exactly 1 record, got %d", path, n)
	}
	vec = make([]uint64, dim)
	for j := 0; j < dim; j++ {
		vec[j] = binary.LittleEndian.Uint64(payload[j*8 : j*8+8])
	}
	return vec, nil
}
