// Package platform opens archive inputs without following symbolic links.
package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrSymlink is returned when the named file is a symbolic link.
	ErrSymlink = errors.New("symbolic links not supported")

	// ErrNotRegular is returned when the named file is not a regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// OpenRegular opens name under root for reading and returns it with its
// current FileInfo. Symbolic links are never followed. The caller must
// close the returned file.
func OpenRegular(root *os.Root, name string) (*os.File, fs.FileInfo, error) {
	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s (%s)", ErrNotRegular, name, info.Mode().Type())
	}
	return f, info, nil
}
