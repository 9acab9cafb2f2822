package tau

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/meigma/tau/internal/frame"
)

// Header describes one record of a directory archive.
type Header = frame.Header

// Reader reads the records of a directory archive. Single-file archives
// have no records; decompress them with any xz reader.
//
//	r, err := tau.NewReader(f)
//	for {
//	    hdr, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	    io.Copy(dst, r)
//	}
type Reader struct {
	fr *frame.Reader
}

// NewReader returns a Reader over the compressed archive r.
// Only archives written on a host with the same byte order can be read.
func NewReader(r io.Reader) (*Reader, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return &Reader{fr: frame.NewReader(xr)}, nil
}

// Next advances to the next record, skipping any unread payload. It
// returns io.EOF after the last record.
func (r *Reader) Next() (*Header, error) {
	return r.fr.Next()
}

// Read reads the current record's payload.
func (r *Reader) Read(p []byte) (int, error) {
	return r.fr.Read(p)
}
