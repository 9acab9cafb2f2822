package tau

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

var (
	// ErrNoInputs is returned when compressing an empty PackingList.
	ErrNoInputs = errors.New("tau: packing list is empty")

	// ErrMultipleRoots is returned when a PackingList holds more than one
	// input. The archive format has no way to combine several roots.
	ErrMultipleRoots = errors.New("tau: packing list holds more than one root")
)

// PackingList collects input roots destined for one archive.
type PackingList struct {
	output string
	paths  []string
	opts   []Option
	cfg    config
}

// NewPackingList returns an empty list that archives to output. opts apply
// to Compress.
func NewPackingList(output string, opts ...Option) *PackingList {
	return &PackingList{output: output, opts: opts, cfg: newConfig(opts)}
}

// Add records path. A path that does not exist is logged and still
// recorded; Compress reports it.
func (l *PackingList) Add(path string) {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		l.cfg.log().Warn("input path does not exist", "path", path)
	}
	l.paths = append(l.paths, path)
}

// Paths returns the recorded roots in insertion order.
func (l *PackingList) Paths() []string {
	return slices.Clone(l.paths)
}

// Output returns the archive path.
func (l *PackingList) Output() string {
	return l.output
}

// Compress archives the single recorded root to Output with CompressPath.
func (l *PackingList) Compress(ctx context.Context) (*Result, error) {
	switch len(l.paths) {
	case 0:
		return nil, newError(ErrNoInputs, l.output, nil)
	case 1:
		return CompressPath(ctx, l.paths[0], l.output, l.opts...)
	default:
		return nil, newError(ErrMultipleRoots, l.output, fmt.Errorf("%d roots", len(l.paths)))
	}
}

// ArchivePath returns the conventional archive path for name in dir:
// <dir>/<name>.tar.xz.
func ArchivePath(dir, name string) string {
	return filepath.Join(dir, name+ArchiveExt)
}

// Packer names and writes an archive inside an output directory.
type Packer struct {
	dir  string
	list *PackingList
}

// NewPacker returns a Packer whose archive is ArchivePath(dir, name).
func NewPacker(dir, name string, opts ...Option) *Packer {
	return &Packer{dir: dir, list: NewPackingList(ArchivePath(dir, name), opts...)}
}

// AddPacking adds an input root.
func (p *Packer) AddPacking(path string) {
	p.list.Add(path)
}

// Output returns the archive path.
func (p *Packer) Output() string {
	return p.list.Output()
}

// Pack creates the output directory if needed and compresses the packing
// list into it.
func (p *Packer) Pack(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(p.dir, 0o750); err != nil {
		return nil, newError(ErrOpen, p.dir, fmt.Errorf("create output directory: %w", err))
	}
	return p.list.Compress(ctx)
}
