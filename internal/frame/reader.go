package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Reader decodes records from plaintext, in the manner of archive/tar:
// call Next to advance to a record, then Read its payload.
type Reader struct {
	r         io.Reader
	remaining uint64
	scratch   [sizeSize]byte
	err       error
}

// NewReader returns a Reader over the decompressed record stream r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next skips any unread payload of the current record and returns the next
// header. It returns io.EOF at a clean record boundary and ErrTruncated if
// the stream ends inside a record.
func (r *Reader) Next() (*Header, error) {
	if r.err != nil {
		return nil, r.err
	}
	if err := r.skip(); err != nil {
		return nil, r.fail(err)
	}

	if _, err := io.ReadFull(r.r, r.scratch[:pathLenSize]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, r.fail(io.EOF)
		}
		return nil, r.fail(truncated(err))
	}
	pathLen := binary.NativeEndian.Uint32(r.scratch[:pathLenSize])
	if pathLen > MaxReadPathLen {
		return nil, r.fail(fmt.Errorf("%w: %d bytes", ErrPathTooLong, pathLen))
	}

	path := make([]byte, pathLen)
	if _, err := io.ReadFull(r.r, path); err != nil {
		return nil, r.fail(truncated(err))
	}
	if _, err := io.ReadFull(r.r, r.scratch[:]); err != nil {
		return nil, r.fail(truncated(err))
	}

	hdr := &Header{Path: string(path), Size: binary.NativeEndian.Uint64(r.scratch[:])}
	r.remaining = hdr.Size
	return hdr, nil
}

// Read reads from the current record's payload. It returns io.EOF at the
// end of the payload.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil && r.remaining > 0 {
		return 0, r.err
	}
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.r.Read(p)
	r.remaining -= uint64(n) //nolint:gosec // n is non-negative by io.Reader contract
	if err == io.EOF {
		if r.remaining > 0 {
			return n, r.fail(ErrTruncated)
		}
		err = nil
	}
	if err != nil {
		return n, r.fail(err)
	}
	return n, nil
}

func (r *Reader) skip() error {
	for r.remaining > 0 {
		chunk := min(r.remaining, 1<<30)
		n, err := io.CopyN(io.Discard, r.r, int64(chunk)) //nolint:gosec // chunk fits in int64
		r.remaining -= uint64(n)                          //nolint:gosec // n is non-negative
		if err != nil {
			return truncated(err)
		}
	}
	return nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	return err
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
