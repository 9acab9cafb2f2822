package encoder

import "io"

// outBuffer is the output staging buffer. len(buf) is the valid prefix and
// cap(buf) the staging size; the prefix is written to sink whenever it
// reaches cap(buf).
type outBuffer struct {
	sink    io.Writer
	buf     []byte
	emitted uint64
	err     error
}

// Write implements io.Writer for the xz writer.
func (o *outBuffer) Write(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	var written int
	for len(p) > 0 {
		n := copy(o.buf[len(o.buf):cap(o.buf)], p)
		o.buf = o.buf[:len(o.buf)+n]
		p = p[n:]
		written += n
		if len(o.buf) == cap(o.buf) {
			if err := o.flush(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// flush writes exactly the valid prefix to the sink and empties the buffer.
// A sink error is sticky.
func (o *outBuffer) flush() error {
	if o.err != nil {
		return o.err
	}
	if len(o.buf) == 0 {
		return nil
	}
	n, err := o.sink.Write(o.buf)
	if err == nil && n < len(o.buf) {
		err = io.ErrShortWrite
	}
	o.emitted += uint64(n) //nolint:gosec // n is non-negative by io.Writer contract
	o.buf = o.buf[:0]
	if err != nil {
		o.err = err
	}
	return err
}
