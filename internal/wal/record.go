package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"
)

const (
	// headerSize is len(4) + checksum(8).
	headerSize = 12
	// maxRecordSize guards against reading a garbage length after a torn write.
	maxRecordSize = 64 << 20
)

var (
	// ErrCorruptedRecord is returned when a record fails its checksum or has an impossible length.
	ErrCorruptedRecord = errors.New("corrupted record")
	// ErrTornRecord is returned when the stream ends in the middle of a record.
	ErrTornRecord = errors.New("torn record")
)

// RecordWriter frames payloads as `len uint32 | xxh3 uint64 | payload`, little endian.
type RecordWriter struct {
	w io.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// WriteRecord writes the framed payload with a single Write call and returns the bytes written.
func (rw *RecordWriter) WriteRecord(payload []byte) (int, error) {
	if len(payload) > maxRecordSize {
		return 0, fmt.Errorf("record of %d bytes exceeds the %d byte limit", len(payload),
			maxRecordSize)
	}
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint64(buf[4:12], xxh3.Hash(payload))
	copy(buf[headerSize:], payload)
	return rw.w.Write(buf)
}

// RecordReader reads records written by RecordWriter.
type RecordReader struct {
	r      io.Reader
	offset int64
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r}
}

// Offset is the end of the last record read successfully.
func (rr *RecordReader) Offset() int64 {
	return rr.offset
}

// ReadRecord returns the next payload. It returns io.EOF at a clean end of stream,
// ErrTornRecord when the stream stops inside a record and ErrCorruptedRecord on a bad checksum.
func (rr *RecordReader) ReadRecord() ([]byte, error) {
	var header [headerSize]byte
	n, err := io.ReadFull(rr.r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTornRecord
		}
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header[0:4])
	if size > maxRecordSize {
		return nil, fmt.Errorf("%w: length %d", ErrCorruptedRecord, size)
	}
	sum := binary.LittleEndian.Uint64(header[4:12])

	payload := make([]byte, size)
	if _, err = io.ReadFull(rr.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTornRecord
		}
		return nil, err
	}

	if xxh3.Hash(payload) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorruptedRecord, rr.offset)
	}

	rr.offset += int64(headerSize) + int64(size)
	return payload, nil
}
