package tau

import (
	"context"
	_ "crypto/sha256" // registers SHA-256 for digest.Canonical
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/tau/internal/encoder"
	"github.com/meigma/tau/internal/frame"
	"github.com/meigma/tau/internal/platform"
	"github.com/meigma/tau/internal/walk"
)

// Classify reports whether path is a regular file or a directory. It
// returns an *Error of kind ErrInputMissing or ErrUnsupportedKind otherwise.
// Symbolic links at path itself are followed.
func Classify(path string) (InputKind, error) {
	kind, err := walk.Classify(path)
	switch {
	case err == nil:
		return kind, nil
	case errors.Is(err, walk.ErrNotExist):
		return 0, newError(ErrInputMissing, path, fs.ErrNotExist)
	case errors.Is(err, walk.ErrUnsupported):
		return 0, newError(ErrUnsupportedKind, path, nil)
	default:
		return 0, newError(ErrOpen, path, err)
	}
}

// Compress archives input, a regular file or a directory, and writes the
// compressed archive to w.
//
// A regular file is archived in single-file mode: the archive decompresses
// to the file's bytes. A directory is archived as a stream of records, one
// per regular file beneath it, in the order the filesystem lists them.
// Symbolic links and special files inside the directory are skipped.
//
// The directory is fully enumerated before anything is written. Every
// failure is fatal; w may have received a partial archive by then.
func Compress(ctx context.Context, input string, w io.Writer, opts ...Option) (*Result, error) {
	kind, err := Classify(input)
	if err != nil {
		return nil, err
	}
	return compress(ctx, newConfig(opts), kind, input, w)
}

// CompressFile archives the regular file at path in single-file mode.
func CompressFile(ctx context.Context, path string, w io.Writer, opts ...Option) (*Result, error) {
	return compressAs(ctx, KindFile, path, w, opts)
}

// CompressDirectory archives the regular files under dir as a record stream.
func CompressDirectory(ctx context.Context, dir string, w io.Writer, opts ...Option) (*Result, error) {
	return compressAs(ctx, KindDirectory, dir, w, opts)
}

// CompressPath archives input into a newly created file at output,
// overwriting any existing file.
//
// The input is classified, and opened or enumerated, before output is
// created, so a missing input never produces an output file. Without
// WithAtomicWrite a failed session may leave a truncated output behind.
func CompressPath(ctx context.Context, input, output string, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	kind, err := Classify(input)
	if err != nil {
		return nil, err
	}

	j, err := prepare(ctx, &cfg, kind, input)
	if err != nil {
		return nil, err
	}
	defer j.close()
	if err := j.checkOutput(output); err != nil {
		return nil, err
	}
	j.output = output

	var res *Result
	err = writeOutput(output, cfg.atomic, func(w io.Writer) error {
		var runErr error
		res, runErr = j.run(ctx, w)
		return runErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func compressAs(ctx context.Context, want InputKind, input string, w io.Writer, opts []Option) (*Result, error) {
	kind, err := Classify(input)
	if err != nil {
		return nil, err
	}
	if kind != want {
		return nil, newError(ErrUnsupportedKind, input, fmt.Errorf("is a %s, not a %s", kind, want))
	}
	return compress(ctx, newConfig(opts), kind, input, w)
}

func compress(ctx context.Context, cfg config, kind InputKind, input string, w io.Writer) (*Result, error) {
	j, err := prepare(ctx, &cfg, kind, input)
	if err != nil {
		return nil, err
	}
	defer j.close()
	return j.run(ctx, w)
}

// job is one archive session: the opened input and everything needed to
// stream it through the encoder.
type job struct {
	cfg    *config
	kind   InputKind
	input  string
	output string

	// single-file mode
	file *os.File
	info fs.FileInfo

	// directory mode
	root    *os.Root
	entries []walk.Entry

	total uint64
}

// prepare opens the input file, or opens and enumerates the directory.
func prepare(ctx context.Context, cfg *config, kind InputKind, input string) (*job, error) {
	j := &job{cfg: cfg, kind: kind, input: input}
	switch kind {
	case KindFile:
		f, err := os.Open(input) //nolint:gosec // user-provided path is intentional
		if err != nil {
			return nil, newError(ErrOpen, input, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, newError(ErrRead, input, err)
		}
		if !info.Mode().IsRegular() {
			f.Close()
			return nil, newError(ErrUnsupportedKind, input, nil)
		}
		j.file = f
		j.info = info
		j.total = uint64(info.Size()) //nolint:gosec // regular file sizes are non-negative
	case KindDirectory:
		root, err := os.OpenRoot(input)
		if err != nil {
			return nil, newError(ErrTraversal, input, err)
		}
		cfg.reportProgress(ProgressEvent{Stage: StageEnumerating})
		entries, err := walk.Enumerate(ctx, root, walk.Options{
			MaxFiles: cfg.maxFiles,
			Skipped: func(path string, mode fs.FileMode) {
				cfg.log().Debug("skipped entry", "path", path, "type", mode.Type().String())
			},
		})
		if err != nil {
			root.Close()
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, newError(ctxErr, input, nil)
			}
			return nil, newError(ErrTraversal, input, err)
		}
		j.root = root
		j.entries = entries
		for _, e := range entries {
			j.total += uint64(e.Size) //nolint:gosec // regular file sizes are non-negative
		}
		cfg.log().Debug("directory enumerated", "dir", input, "file_count", len(entries), "size", j.total)
	default:
		return nil, newError(ErrUnsupportedKind, input, nil)
	}
	return j, nil
}

// checkOutput refuses an existing output that is the input file or one of
// the enumerated files, which creating the output would truncate.
func (j *job) checkOutput(output string) error {
	out, err := os.Stat(output)
	if err != nil {
		return nil
	}
	if j.info != nil && os.SameFile(out, j.info) {
		return newError(ErrOpen, output, ErrOutputIsInput)
	}
	for _, e := range j.entries {
		if e.Info != nil && os.SameFile(out, e.Info) {
			return newError(ErrOpen, output, fmt.Errorf("%w: %s", ErrOutputIsInput, filepath.Join(j.input, e.Path)))
		}
	}
	return nil
}

func (j *job) close() {
	if j.file != nil {
		j.file.Close()
	}
	if j.root != nil {
		j.root.Close()
	}
}

// run streams the prepared input through a fresh encoder into w.
func (j *job) run(ctx context.Context, w io.Writer) (*Result, error) {
	log := j.cfg.log()
	digester := digest.Canonical.Digester()
	enc := encoder.New(io.MultiWriter(w, digester.Hash()))
	defer enc.End()

	if err := enc.Start(encoder.DefaultLevel, encoder.CheckCRC64); err != nil {
		return nil, j.fail(j.input, err)
	}

	res := &Result{Mode: j.kind}
	switch j.kind {
	case KindFile:
		log.Info("compressing file", "path", j.input, "size", j.total)
		n, err := enc.ReadFrom(contextReader{ctx: ctx, r: j.file})
		if err != nil {
			return nil, j.fail(j.input, err)
		}
		res.PayloadBytes = uint64(n) //nolint:gosec // n is non-negative
		j.cfg.reportProgress(ProgressEvent{
			Stage:      StageCompressing,
			Path:       j.input,
			BytesDone:  res.PayloadBytes,
			BytesTotal: j.total,
			FilesDone:  1,
			FilesTotal: 1,
		})
	case KindDirectory:
		log.Info("compressing directory", "path", j.input, "file_count", len(j.entries), "size", j.total)
		fw := frame.NewWriter(enc)
		for _, e := range j.entries {
			if err := ctx.Err(); err != nil {
				return nil, newError(err, j.input, nil)
			}
			if err := j.writeEntry(ctx, fw, e); err != nil {
				return nil, err
			}
			j.cfg.reportProgress(ProgressEvent{
				Stage:      StageCompressing,
				Path:       e.Path,
				BytesDone:  fw.PayloadBytes(),
				BytesTotal: j.total,
				FilesDone:  fw.Records(),
				FilesTotal: len(j.entries),
			})
		}
		res.Records = fw.Records()
		res.PayloadBytes = fw.PayloadBytes()
	}

	j.cfg.reportProgress(ProgressEvent{
		Stage:      StageFinishing,
		BytesDone:  res.PayloadBytes,
		BytesTotal: j.total,
		FilesDone:  res.Records,
		FilesTotal: len(j.entries),
	})
	if err := enc.Finish(); err != nil {
		return nil, j.fail(j.input, err)
	}

	res.PlainBytes = enc.Consumed()
	res.OutputBytes = enc.Emitted()
	res.Digest = digester.Digest()
	log.Info("archive written",
		"mode", j.kind.String(),
		"records", res.Records,
		"plain_bytes", res.PlainBytes,
		"output_bytes", res.OutputBytes,
		"digest", res.Digest.String())
	return res, nil
}

// writeEntry frames one enumerated file. The record size is taken from the
// opened file, so a file that changed size since enumeration is still
// framed consistently; one that shrinks while being read fails with ErrRead.
func (j *job) writeEntry(ctx context.Context, fw *frame.Writer, e walk.Entry) error {
	full := filepath.Join(j.input, e.Path)
	f, info, err := platform.OpenRegular(j.root, e.Path)
	if err != nil {
		return newError(ErrOpen, full, err)
	}
	defer f.Close()

	size := uint64(info.Size()) //nolint:gosec // regular file sizes are non-negative
	if err := fw.WriteRecord(e.Path, size, contextReader{ctx: ctx, r: f}); err != nil {
		return j.fail(full, err)
	}
	j.cfg.log().Debug("archived file", "path", e.Path, "size", size)
	return nil
}

// fail attributes err to a kind, naming the output for sink failures.
func (j *job) fail(path string, err error) error {
	if errors.Is(err, encoder.ErrWrite) && j.output != "" {
		path = j.output
	}
	return sessionError(path, err)
}

// contextReader stops reading once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
