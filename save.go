package tau

import (
	"errors"
	"io"
	"io/fs"
	"math/rand/v2" //nolint:gosec // temp names need uniqueness, not secrecy
	"os"
	"path/filepath"
	"strconv"
)

// tempPrefix names the staging files of atomic writes.
const tempPrefix = ".tau-"

// writeOutput creates output and hands it to fn. With atomic set, fn
// writes to a temp file in the same directory that replaces output only
// after fn and Close succeed.
func writeOutput(output string, atomic bool, fn func(io.Writer) error) error {
	if atomic {
		return writeOutputAtomic(output, fn)
	}

	f, err := os.Create(output) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return newError(ErrOpen, output, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return newError(ErrWrite, output, err)
	}
	return nil
}

func writeOutputAtomic(output string, fn func(io.Writer) error) error {
	tmp, err := createTemp(filepath.Dir(output))
	if err != nil {
		return newError(ErrOpen, output, err)
	}
	tmpPath := tmp.Name()

	// Match os.Create: an existing output keeps its permissions.
	if info, statErr := os.Stat(output); statErr == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return newError(ErrOpen, output, err)
		}
	}

	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return newError(ErrWrite, output, err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		os.Remove(tmpPath)
		return newError(ErrWrite, output, err)
	}
	return nil
}

// createTemp is os.CreateTemp with mode 0o666 before umask, the mode
// os.Create uses, instead of 0o600.
func createTemp(dir string) (*os.File, error) {
	for range 10000 {
		name := filepath.Join(dir, tempPrefix+strconv.FormatUint(uint64(rand.Uint32()), 10))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666) //nolint:gosec // same mode as os.Create
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, &fs.PathError{Op: "createtemp", Path: filepath.Join(dir, tempPrefix+"*"), Err: fs.ErrExist}
}
