package tau

import (
	"context"
	"errors"
	"strings"

	"github.com/meigma/tau/internal/encoder"
	"github.com/meigma/tau/internal/frame"
	"github.com/meigma/tau/internal/platform"
	"github.com/meigma/tau/internal/walk"
)

// Error kinds. Errors returned by Classify, the Compress functions,
// PackingList and Packer are *Error values whose Kind is one of these,
// ErrNoInputs, ErrMultipleRoots, or a context error on cancellation.
// Reader errors are not wrapped.
var (
	// ErrInputMissing is returned when the input path does not exist.
	ErrInputMissing = errors.New("tau: input missing")

	// ErrUnsupportedKind is returned when the input is neither a regular
	// file nor a directory.
	ErrUnsupportedKind = errors.New("tau: unsupported input kind")

	// ErrOpen is returned when an input file cannot be opened or the
	// output cannot be created.
	ErrOpen = errors.New("tau: open failure")

	// ErrWrite is returned when the output sink errors or accepts a short write.
	ErrWrite = errors.New("tau: write failure")

	// ErrRead is returned when reading an input file fails, or when a file
	// shrinks while it is being archived. EOF is not an error.
	ErrRead = errors.New("tau: read failure")

	// ErrEncoderInit is returned when the encoder refuses its parameters.
	ErrEncoderInit = errors.New("tau: encoder init failure")

	// ErrEncoderStep is returned when the encoder fails mid-stream.
	ErrEncoderStep = errors.New("tau: encoder step failure")

	// ErrTraversal is returned when directory enumeration fails.
	ErrTraversal = errors.New("tau: traversal failure")
)

// Causes carried in Error.Err.
var (
	// ErrTooManyFiles is returned when a directory holds more regular files
	// than WithMaxFiles allows. It is reported with Kind ErrTraversal.
	ErrTooManyFiles = walk.ErrTooManyFiles

	// ErrSymlink is returned when a file turns into a symbolic link between
	// enumeration and archiving. It is reported with Kind ErrOpen.
	ErrSymlink = platform.ErrSymlink

	// ErrOutputIsInput is returned when the output path names the input
	// file or a file inside the input directory. It is reported with Kind
	// ErrOpen.
	ErrOutputIsInput = errors.New("tau: output is an input file")
)

// Error describes a failed archive session.
//
// errors.Is matches both Kind and the underlying cause.
type Error struct {
	// Kind is one of the Err* kinds above.
	Kind error

	// Path is the offending file, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns Kind and Err.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the Kind of the first *Error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

func newError(kind error, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// sessionError attributes an error raised while streaming to a kind.
// Errors that already carry a kind are returned unchanged.
func sessionError(path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var kind error
	switch {
	case errors.Is(err, context.Canceled):
		kind = context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = context.DeadlineExceeded
	case errors.Is(err, encoder.ErrWrite):
		kind = ErrWrite
	case errors.Is(err, encoder.ErrRead), errors.Is(err, frame.ErrSizeMismatch):
		kind = ErrRead
	case errors.Is(err, encoder.ErrInit):
		kind = ErrEncoderInit
	default:
		kind = ErrEncoderStep
	}
	return newError(kind, path, err)
}
