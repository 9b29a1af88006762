package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Sentinel errors. Match them with errors.Is on the returned *Error.
var (
	// ErrInvalidArgument reports an empty or malformed argument. No remote
	// call was made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotMounted reports an operation on a session without a mounted handle.
	ErrNotMounted = errors.New("session not mounted")

	// ErrShortTransfer reports a single-shot write that transferred fewer
	// bytes than requested.
	ErrShortTransfer = errors.New("short transfer")

	// ErrDepthExceeded reports a tree walk deeper than the configured limit.
	ErrDepthExceeded = errors.New("tree depth limit exceeded")

	// ErrUnsupportedType reports a local entry that is neither a regular file
	// nor a directory.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrBufferLimit reports a directory entry name that does not fit in the
	// largest name buffer.
	ErrBufferLimit = errors.New("name buffer limit reached")
)

// Error is the failure type returned by every session operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errno returns the POSIX code closest to the failure.
//
// Remote and local I/O errors carry their own code; the sentinels map to
// the code a libcephfs caller would have seen for the same condition.
func (e *Error) Errno() unix.Errno {
	switch {
	case errors.Is(e.Err, ErrNotMounted):
		return unix.ENOTCONN
	case errors.Is(e.Err, ErrInvalidArgument):
		return unix.EINVAL
	case errors.Is(e.Err, ErrShortTransfer):
		return unix.EIO
	case errors.Is(e.Err, ErrDepthExceeded):
		return unix.ELOOP
	case errors.Is(e.Err, ErrUnsupportedType):
		return unix.EINVAL
	case errors.Is(e.Err, ErrBufferLimit):
		return unix.ERANGE
	}
	return remotefs.ErrnoOf(e.Err)
}

// Errno extracts the POSIX code from any error returned by this package.
// It returns 0 for nil.
func Errno(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Errno()
	}
	return remotefs.ErrnoOf(err)
}

// fail wraps err and logs it once, at the operation that detected it.
func (s *Session) fail(op, p string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	wrapped := &Error{Op: op, Path: p, Err: err}
	s.log.Error("operation failed",
		zap.String("op", op),
		zap.String("path", p),
		zap.Int("errno", int(wrapped.Errno())),
		zap.Error(err))
	return wrapped
}
