// Package remotefs defines the call surface of a remote, POSIX-compatible
// filesystem client as consumed by the session layer.
//
// The interfaces mirror the libcephfs mount API: a Driver creates an
// unmounted Mount for a client identity, the Mount is configured through
// string options and then mounted at a root inside the remote namespace.
//
// Error convention:
// Every failure is (or wraps) a unix.Errno. Implementations return
// *fs.PathError values when a path is involved so that the numeric code is
// recoverable with ErrnoOf.
//
// Partial I/O convention:
// Pread and Pwrite may transfer fewer bytes than requested without reporting
// an error. They are deliberately not io.ReaderAt / io.WriterAt, whose
// contracts forbid silent short transfers. Pread returns 0, nil at end of file.
package remotefs

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

// Driver creates connection handles for one kind of remote filesystem.
type Driver interface {
	// Name identifies the driver in logs and configuration ("ceph", "memory", ...).
	Name() string

	// Create allocates an unmounted handle for the client identity id.
	Create(id string) (Mount, error)
}

// Mount is a single connection handle.
//
// A Mount is not safe for concurrent use; the session that owns it serializes
// access.
type Mount interface {
	// ReadConfigFile loads configuration options from a ceph.conf style file.
	ReadConfigFile(path string) error

	// SetConfigOption sets a single configuration option (e.g. "mon host", "key").
	SetConfigOption(option, value string) error

	// Mount connects and mounts the namespace at root.
	Mount(ctx context.Context, root string) error

	// IsMounted reports whether Mount succeeded and Unmount has not been called.
	IsMounted() bool

	// Unmount detaches from the namespace. The handle can be mounted again.
	Unmount() error

	// Release frees the handle. It must be unmounted first.
	Release() error

	Open(path string, flags int, mode uint32) (File, error)
	Statx(path string) (*Statx, error)

	// MakeDirs creates path and any missing parents. It returns EEXIST when
	// path already exists as a directory.
	MakeDirs(path string, mode uint32) error

	RemoveDir(path string) error
	Unlink(path string) error
	Rename(from, to string) error
	OpenDir(path string) (Dir, error)
	ChangeDir(path string) error
	CurrentDir() string
}

// File is an open remote file descriptor.
type File interface {
	Pread(b []byte, off int64) (int, error)
	Pwrite(b []byte, off int64) (int, error)
	Close() error
}

// Dir is an open remote directory stream. The stream includes the "." and
// ".." pseudo-entries.
type Dir interface {
	// ReadDir returns the next entry, or nil, nil at the end of the stream.
	ReadDir() (*DirEntry, error)

	// ReadDirPlus is ReadDir with Statx populated on the entry.
	ReadDirPlus() (*DirEntry, error)

	// ReadDirNames fills buf with as many NUL-terminated names as fit and
	// returns the number of bytes used. It returns 0 at the end of the
	// stream and ERANGE, without advancing, when not even one name fits.
	ReadDirNames(buf []byte) (int, error)

	Close() error
}

// EntryType classifies a directory entry.
type EntryType uint8

const (
	TypeUnknown EntryType = iota
	TypeRegular
	TypeDir
	TypeSymlink
	TypeOther
)

// DirEntry is one entry of a directory stream.
type DirEntry struct {
	Name  string
	Inode uint64
	Type  EntryType

	// Statx is only set by ReadDirPlus.
	Statx *Statx
}

// Statx holds the attributes returned by a stat call.
type Statx struct {
	Mode  uint32
	Size  uint64
	Inode uint64
	Mtime time.Time
}

// IsDir reports whether the attributes describe a directory.
func (s *Statx) IsDir() bool { return s.Mode&unix.S_IFMT == unix.S_IFDIR }

// IsRegular reports whether the attributes describe a regular file.
func (s *Statx) IsRegular() bool { return s.Mode&unix.S_IFMT == unix.S_IFREG }

// EntryType derives the directory entry type from the mode bits.
func (s *Statx) EntryType() EntryType {
	switch s.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return TypeRegular
	case unix.S_IFDIR:
		return TypeDir
	case unix.S_IFLNK:
		return TypeSymlink
	default:
		return TypeOther
	}
}
