// Package frame encodes and decodes the archive's record stream.
//
// A directory archive's plaintext is a plain concatenation of records,
// with no preamble, trailer, or record count:
//
//	path length  4 bytes  uint32, host byte order
//	path         path length bytes
//	size         8 bytes  uint64, host byte order
//	payload      size bytes
//
// Integers are written in the host's native byte order, so archives are
// only portable between hosts of the same endianness.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/meigma/tau/internal/encoder"
)

const (
	pathLenSize = 4
	sizeSize    = 8

	// MaxReadPathLen bounds the path length accepted by Reader so that a
	// corrupt length field cannot force a huge allocation.
	MaxReadPathLen = 1 << 20
)

var (
	// ErrPathTooLong is returned for a path that does not fit its length field.
	ErrPathTooLong = errors.New("frame: path too long")

	// ErrSizeMismatch is returned when a payload ends before its declared size.
	ErrSizeMismatch = errors.New("frame: payload size mismatch")

	// ErrSizeOverflow is returned for a size that cannot be streamed.
	ErrSizeOverflow = errors.New("frame: size overflow")

	// ErrTruncated is returned by Reader when the stream ends inside a record.
	ErrTruncated = errors.New("frame: truncated record")
)

// Header describes one record.
type Header struct {
	// Path is the record path relative to the archive root, using the
	// separator of the host that wrote it.
	Path string

	// Size is the payload length in bytes.
	Size uint64
}

// Sink receives the encoded record stream. *encoder.Encoder implements it.
type Sink interface {
	Push(p []byte, action encoder.Action) error
	io.ReaderFrom
}

// Writer encodes records into a Sink. It never finishes the sink.
type Writer struct {
	sink    Sink
	scratch [sizeSize]byte
	records int
	payload uint64
}

// NewWriter returns a Writer that pushes records into s.
func NewWriter(s Sink) *Writer {
	return &Writer{sink: s}
}

// WriteRecord writes the header for path and size, then streams exactly
// size bytes from payload. Bytes past size are not read. A payload that
// ends early yields ErrSizeMismatch, leaving a partial record behind.
func (w *Writer) WriteRecord(path string, size uint64, payload io.Reader) error {
	if uint64(len(path)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(path))
	}
	if size > math.MaxInt64 {
		return fmt.Errorf("%w: %d bytes", ErrSizeOverflow, size)
	}

	binary.NativeEndian.PutUint32(w.scratch[:pathLenSize], uint32(len(path))) //nolint:gosec // checked above
	if err := w.sink.Push(w.scratch[:pathLenSize], encoder.ActionRun); err != nil {
		return err
	}
	if err := w.sink.Push([]byte(path), encoder.ActionRun); err != nil {
		return err
	}
	binary.NativeEndian.PutUint64(w.scratch[:], size)
	if err := w.sink.Push(w.scratch[:], encoder.ActionRun); err != nil {
		return err
	}

	n, err := w.sink.ReadFrom(io.LimitReader(payload, int64(size)))
	if err != nil {
		return err
	}
	if uint64(n) != size { //nolint:gosec // n is non-negative
		return fmt.Errorf("%w: %s: expected %d bytes, got %d", ErrSizeMismatch, path, size, n)
	}

	w.records++
	w.payload += size
	return nil
}

// Records returns the number of records written.
func (w *Writer) Records() int {
	return w.records
}

// PayloadBytes returns the total payload bytes written.
func (w *Writer) PayloadBytes() uint64 {
	return w.payload
}
