// Package walk classifies archive inputs and enumerates the regular files
// under a directory root.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

var (
	// ErrNotExist is returned by Classify when the input does not exist.
	ErrNotExist = errors.New("walk: input does not exist")

	// ErrUnsupported is returned by Classify for anything but a regular
	// file or a directory.
	ErrUnsupported = errors.New("walk: unsupported input kind")

	// ErrTooManyFiles is returned when enumeration exceeds Options.MaxFiles.
	ErrTooManyFiles = errors.New("walk: too many files")
)

// Kind is the classification of an input path.
type Kind uint8

const (
	KindFile Kind = iota + 1
	KindDir
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "directory"
	default:
		return "unknown"
	}
}

// Classify reports whether path is a regular file or a directory.
// Symbolic links at path itself are followed. A path that runs through a
// non-directory does not exist.
func Classify(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return 0, fmt.Errorf("%w: %w", ErrNotExist, err)
		}
		return 0, err
	}
	switch mode := info.Mode(); {
	case mode.IsRegular():
		return KindFile, nil
	case mode.IsDir():
		return KindDir, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, mode.Type())
	}
}

// Entry is one regular file found by Enumerate.
type Entry struct {
	// Path is relative to the enumeration root and uses the platform
	// separator.
	Path string

	// Size is the size reported during enumeration. The file may change
	// before it is read.
	Size int64

	// Info is the entry's Lstat result from enumeration.
	Info fs.FileInfo
}

// Options tunes Enumerate.
type Options struct {
	// MaxFiles limits the number of entries. Zero or negative means no limit.
	MaxFiles int

	// Skipped, if set, is called for every entry that is neither a regular
	// file nor a directory.
	Skipped func(path string, mode fs.FileMode)
}

// Enumerate walks root depth-first and returns its regular files.
//
// Entries come in the order the filesystem returns them from each
// directory, with a subdirectory's contents immediately after the
// subdirectory itself. The order is not sorted and may differ between
// filesystems. Directories, symbolic links, and special files produce no
// entries. Any error aborts the walk.
func Enumerate(ctx context.Context, root *os.Root, opts Options) ([]Entry, error) {
	w := &walker{root: root, opts: opts, entries: make([]Entry, 0, 64)}
	if err := w.dir(ctx, "."); err != nil {
		return nil, err
	}
	return w.entries, nil
}

type walker struct {
	root    *os.Root
	opts    Options
	entries []Entry
}

func (w *walker) dir(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := w.root.Open(rel)
	if err != nil {
		return err
	}
	// (*os.File).ReadDir keeps the directory's own order; os.ReadDir would sort.
	list, err := d.ReadDir(-1)
	d.Close()
	if err != nil {
		return fmt.Errorf("read directory %s: %w", rel, err)
	}

	for _, de := range list {
		path := de.Name()
		if rel != "." {
			path = filepath.Join(rel, path)
		}
		mode := de.Type()
		switch {
		case mode.IsDir():
			if err := w.dir(ctx, path); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := w.file(path, de); err != nil {
				return err
			}
		default:
			if w.opts.Skipped != nil {
				w.opts.Skipped(path, mode)
			}
		}
	}
	return nil
}

func (w *walker) file(path string, de fs.DirEntry) error {
	if w.opts.MaxFiles > 0 && len(w.entries) >= w.opts.MaxFiles {
		return fmt.Errorf("%w: limit is %d", ErrTooManyFiles, w.opts.MaxFiles)
	}
	info, err := de.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	w.entries = append(w.entries, Entry{Path: path, Size: info.Size(), Info: info})
	return nil
}
