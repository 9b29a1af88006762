package remotefs

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// ErrnoOf extracts the POSIX error code carried by err.
//
// Returns 0 for a nil error and EIO for errors that carry no code.
func ErrnoOf(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

// IsErrno reports whether err carries the given code.
func IsErrno(err error, code unix.Errno) bool {
	return err != nil && ErrnoOf(err) == code
}

// PathErr wraps code as an *fs.PathError for op on path.
func PathErr(op, path string, code unix.Errno) error {
	return &fs.PathError{Op: op, Path: path, Err: code}
}
