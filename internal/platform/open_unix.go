//go:build unix

package platform

import (
	"errors"
	"os"
	"syscall"
)

// openNoFollow relies on O_NOFOLLOW, which fails with ELOOP on a link.
// O_NONBLOCK keeps a FIFO swapped in after enumeration from blocking the
// open; OpenRegular rejects it afterwards.
func openNoFollow(root *os.Root, name string) (*os.File, error) {
	f, err := root.OpenFile(name, os.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, ErrSymlink
		}
		return nil, err
	}
	return f, nil
}
