// Package encoder drives an xz (LZMA2) stream encoder through two fixed-size
// staging buffers.
//
// Input is copied into the input staging buffer one chunk at a time and the
// encoder is stepped once per chunk. Encoder output collects in the output
// staging buffer, which is written to the sink whenever it fills and once
// more when the stream ends. The sink therefore sees writes of exactly
// BufferSize bytes, followed by one final shorter write.
package encoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// BufferSize is the size of the input and the output staging buffer.
const BufferSize = 8 << 10

// DefaultLevel is the compression preset used for archives.
const DefaultLevel = 6

// Sentinel errors. Every error returned by an Encoder wraps exactly one.
var (
	// ErrInit is returned when the encoder refuses its parameters.
	ErrInit = errors.New("encoder: init")

	// ErrStep is returned when the encoder fails mid-stream.
	ErrStep = errors.New("encoder: step")

	// ErrWrite is returned when the sink fails or accepts a short write.
	ErrWrite = errors.New("encoder: write")

	// ErrRead is returned by ReadFrom when its source fails.
	ErrRead = errors.New("encoder: read input")

	// ErrState is returned for calls that are illegal in the current state.
	ErrState = errors.New("encoder: invalid state")
)

// Action tells Push whether more input follows.
type Action uint8

const (
	// ActionRun feeds input and returns once it has been consumed.
	ActionRun Action = iota

	// ActionFinish feeds input, then terminates the stream.
	ActionFinish
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Check selects the integrity check stored in the xz stream.
type Check uint8

const (
	CheckNone Check = iota
	CheckCRC32
	CheckCRC64
	CheckSHA256
)

// String returns the name of the check.
func (c Check) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckCRC32:
		return "crc32"
	case CheckCRC64:
		return "crc64"
	case CheckSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// presetDictCap mirrors the dictionary sizes of the liblzma presets 0-9.
var presetDictCap = [...]int{
	0: 256 << 10,
	1: 1 << 20,
	2: 2 << 20,
	3: 4 << 20,
	4: 4 << 20,
	5: 8 << 20,
	6: 8 << 20,
	7: 16 << 20,
	8: 32 << 20,
	9: 64 << 20,
}

// Encoder is a push-style xz encoder with fixed staging buffers.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	xw       *xz.Writer
	in       []byte
	out      *outBuffer
	state    State
	err      error
	consumed uint64
}

// New returns an Encoder in StateUninit that will write to sink.
// Call Start before pushing input.
func New(sink io.Writer) *Encoder {
	return newSized(sink, BufferSize)
}

func newSized(sink io.Writer, size int) *Encoder {
	return &Encoder{
		in:  make([]byte, size),
		out: &outBuffer{sink: sink, buf: make([]byte, 0, size)},
	}
}

// Start initializes the xz stream with the given preset level (0-9) and
// integrity check. The stream header is staged but not yet written.
func (e *Encoder) Start(level int, check Check) error {
	if e.state != StateUninit {
		return fmt.Errorf("%w: start in state %s", ErrState, e.state)
	}
	cfg, err := writerConfig(level, check)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %w", ErrInit, err))
	}
	xw, err := cfg.NewWriter(e.out)
	if err != nil {
		return e.fail(e.wrap(ErrInit, err))
	}
	e.xw = xw
	e.state = StateReady
	return nil
}

// Push feeds p to the encoder. With ActionRun it returns once all of p is
// consumed. With ActionFinish it also writes the stream footer, flushes the
// output buffer, and moves the encoder to StateEnded.
//
// Any failure ends the encoder; later calls return the same error.
func (e *Encoder) Push(p []byte, action Action) error {
	if err := e.begin(); err != nil {
		return err
	}
	for len(p) > 0 {
		n := copy(e.in, p)
		p = p[n:]
		if err := e.step(e.in[:n]); err != nil {
			return err
		}
	}
	if action == ActionFinish {
		return e.finish()
	}
	return nil
}

// Finish is Push(nil, ActionFinish).
func (e *Encoder) Finish() error {
	return e.Push(nil, ActionFinish)
}

// ReadFrom reads r until EOF directly into the input staging buffer,
// stepping the encoder once per read. It implements io.ReaderFrom and
// never finishes the stream.
//
// Errors from r are wrapped with ErrRead and leave the encoder usable.
func (e *Encoder) ReadFrom(r io.Reader) (int64, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	var total int64
	for {
		n, rerr := r.Read(e.in)
		if n > 0 {
			if err := e.step(e.in[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, fmt.Errorf("%w: %w", ErrRead, rerr)
		}
	}
}

// End releases the encoder. It is safe to call in any state and more than
// once. Ending a stream that was never finished leaves the sink holding an
// incomplete frame.
func (e *Encoder) End() {
	e.xw = nil
	if e.state == StateEnded {
		return
	}
	e.state = StateEnded
	if e.err == nil {
		e.err = fmt.Errorf("%w: encoder ended before finish", ErrState)
	}
}

// State reports the current state.
func (e *Encoder) State() State {
	return e.state
}

// Err returns the error that ended the encoder, if any.
func (e *Encoder) Err() error {
	return e.err
}

// Consumed returns the number of input bytes accepted by the encoder.
func (e *Encoder) Consumed() uint64 {
	return e.consumed
}

// Emitted returns the number of compressed bytes written to the sink.
func (e *Encoder) Emitted() uint64 {
	return e.out.emitted
}

// begin checks that input may be pushed and enters StateRunning.
func (e *Encoder) begin() error {
	switch e.state {
	case StateReady, StateRunning:
		e.state = StateRunning
		return nil
	case StateEnded:
		if e.err != nil {
			return e.err
		}
		return fmt.Errorf("%w: push after end of stream", ErrState)
	default:
		return fmt.Errorf("%w: push in state %s", ErrState, e.state)
	}
}

// step hands one staged chunk to the xz writer.
func (e *Encoder) step(chunk []byte) error {
	n, err := e.xw.Write(chunk)
	e.consumed += uint64(n) //nolint:gosec // n is non-negative by io.Writer contract
	if err != nil {
		return e.fail(e.wrap(ErrStep, err))
	}
	if n < len(chunk) {
		return e.fail(fmt.Errorf("%w: %w", ErrStep, io.ErrShortWrite))
	}
	return nil
}

func (e *Encoder) finish() error {
	e.state = StateFinishing
	if err := e.xw.Close(); err != nil {
		return e.fail(e.wrap(ErrStep, err))
	}
	if err := e.out.flush(); err != nil {
		return e.fail(fmt.Errorf("%w: %w", ErrWrite, err))
	}
	e.xw = nil
	e.state = StateEnded
	return nil
}

// wrap attributes err to the sink when the output buffer saw a sink
// failure, and to kind otherwise.
func (e *Encoder) wrap(kind, err error) error {
	if e.out.err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, e.out.err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func (e *Encoder) fail(err error) error {
	e.err = err
	e.xw = nil
	e.state = StateEnded
	return err
}

func writerConfig(level int, check Check) (xz.WriterConfig, error) {
	if level < 0 || level >= len(presetDictCap) {
		return xz.WriterConfig{}, fmt.Errorf("compression level %d out of range [0, %d]", level, len(presetDictCap)-1)
	}
	cfg := xz.WriterConfig{DictCap: presetDictCap[level]}
	switch check {
	case CheckNone:
		cfg.NoCheckSum = true
	case CheckCRC32:
		cfg.CheckSum = xz.CRC32
	case CheckCRC64:
		cfg.CheckSum = xz.CRC64
	case CheckSHA256:
		cfg.CheckSum = xz.SHA256
	default:
		return xz.WriterConfig{}, fmt.Errorf("unknown check kind %d", check)
	}
	if err := cfg.Verify(); err != nil {
		return xz.WriterConfig{}, err
	}
	return cfg, nil
}
