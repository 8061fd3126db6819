package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// WriteIndex serializes a row-major vector matrix to w.
//
// rows must all have length dimension; this is validated before any byte is
// written so a failed call leaves w untouched.
func WriteIndex(w io.Writer, rows [][]float32, dimension int, compress bool) error {
	if dimension <= 0 {
		return fmt.Errorf("persistence: invalid dimension %d", dimension)
	}
	for i, row := range rows {
		if len(row) != dimension {
			return fmt.Errorf("persistence: row %d has dimension %d, want %d", i, len(row), dimension)
		}
	}

	payload := encodeRows(rows, dimension)

	var flags uint8
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("persistence: init zstd: %w", err)
		}
		payload = enc.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		_ = enc.Close()
		flags |= FlagCompressed
	}

	header := FileHeader{
		Magic:     MagicNumber,
		Version:   Version,
		Metric:    MetricSquaredL2,
		Flags:     flags,
		RowCount:  uint64(len(rows)),
		Dimension: uint32(dimension),
		Checksum:  crc32.ChecksumIEEE(payload),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}

	_, err := w.Write(payload)
	return err
}

// ReadIndex deserializes a vector matrix written by WriteIndex.
// It returns the rows and the stored dimension.
func ReadIndex(r io.Reader) ([][]float32, int, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, 0, err
	}
	if header.Magic != MagicNumber {
		return nil, 0, ErrInvalidMagic
	}
	if header.Version != Version {
		return nil, 0, ErrInvalidVersion
	}
	if header.Metric != MetricSquaredL2 {
		return nil, 0, ErrInvalidMetric
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if crc32.ChecksumIEEE(payload) != header.Checksum {
		return nil, 0, ErrChecksum
	}

	if header.Flags&FlagCompressed != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, 0, fmt.Errorf("persistence: init zstd: %w", err)
		}
		payload, err = dec.DecodeAll(payload, nil)
		dec.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("persistence: decompress payload: %w", err)
		}
	}

	dimension := int(header.Dimension)
	count := int(header.RowCount)
	if want := count * dimension * 4; len(payload) != want {
		return nil, 0, fmt.Errorf("persistence: payload is %d bytes, want %d", len(payload), want)
	}

	rows := decodeRows(payload, count, dimension)
	return rows, dimension, nil
}

func encodeRows(rows [][]float32, dimension int) []byte {
	buf := make([]byte, 0, len(rows)*dimension*4)
	var scratch [4]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			buf = append(buf, scratch[:]...)
		}
	}
	return buf
}

func decodeRows(payload []byte, count, dimension int) [][]float32 {
	rows := make([][]float32, count)
	off := 0
	for i := range rows {
		row := make([]float32, dimension)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
		}
		rows[i] = row
	}
	return rows
}

// EncodeIndex is a convenience wrapper returning the serialized artifact bytes.
func EncodeIndex(rows [][]float32, dimension int, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteIndex(&buf, rows, dimension, compress); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeIndex is a convenience wrapper decoding a serialized artifact.
func DecodeIndex(data []byte) ([][]float32, int, error) {
	return ReadIndex(bytes.NewReader(data))
}
