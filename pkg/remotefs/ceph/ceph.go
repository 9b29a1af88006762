//go:build ceph

// Package ceph adapts libcephfs (through go-ceph) to the remotefs interfaces.
//
// Building it requires the Ceph development headers and the "ceph" build
// tag: go build -tags ceph ./...
package ceph

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/ceph/go-ceph/cephfs"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Available reports whether the binary was built with CephFS support.
const Available = true

// Driver creates libcephfs mount handles.
type Driver struct{}

// New returns the CephFS driver.
func New() (remotefs.Driver, error) { return &Driver{}, nil }

func (d *Driver) Name() string { return "ceph" }

func (d *Driver) Create(id string) (remotefs.Mount, error) {
	m, err := cephfs.CreateMountWithId(id)
	if err != nil {
		return nil, toErrno("create", id, err)
	}
	return &mount{m: m}, nil
}

// toErrno converts a go-ceph error (which carries a negative errno through
// ErrorCode) into an *fs.PathError wrapping unix.Errno.
func toErrno(op, p string, err error) error {
	if err == nil {
		return nil
	}
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		code := coded.ErrorCode()
		if code < 0 {
			code = -code
		}
		return remotefs.PathErr(op, p, unix.Errno(code))
	}
	return &fs.PathError{Op: op, Path: p, Err: err}
}

type mount struct {
	m *cephfs.MountInfo
}

func (m *mount) ReadConfigFile(p string) error {
	return toErrno("conf_read_file", p, m.m.ReadConfigFile(p))
}

func (m *mount) SetConfigOption(option, value string) error {
	return toErrno("conf_set", option, m.m.SetConfigOption(option, value))
}

func (m *mount) Mount(ctx context.Context, root string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return toErrno("mount", root, m.m.MountWithRoot(root))
}

func (m *mount) IsMounted() bool { return m.m.IsMounted() }

func (m *mount) Unmount() error { return toErrno("unmount", "", m.m.Unmount()) }

func (m *mount) Release() error { return toErrno("release", "", m.m.Release()) }

func (m *mount) Open(p string, flags int, mode uint32) (remotefs.File, error) {
	f, err := m.m.Open(p, flags, mode)
	if err != nil {
		return nil, toErrno("open", p, err)
	}
	return &file{f: f, name: p}, nil
}

func (m *mount) Statx(p string) (*remotefs.Statx, error) {
	st, err := m.m.Statx(p, cephfs.StatxBasicStats, cephfs.AtSymlinkNofollow)
	if err != nil {
		return nil, toErrno("statx", p, err)
	}
	return convertStatx(st), nil
}

func convertStatx(st *cephfs.CephStatx) *remotefs.Statx {
	return &remotefs.Statx{
		Mode:  uint32(st.Mode),
		Size:  st.Size,
		Inode: uint64(st.Inode),
		Mtime: time.Unix(st.Mtime.Sec, st.Mtime.Nsec),
	}
}

// MakeDirs wraps ceph_mkdirs, which reports EEXIST when p already exists.
func (m *mount) MakeDirs(p string, mode uint32) error {
	return toErrno("mkdirs", p, m.m.MakeDirs(p, mode))
}

func (m *mount) RemoveDir(p string) error { return toErrno("rmdir", p, m.m.RemoveDir(p)) }

func (m *mount) Unlink(p string) error { return toErrno("unlink", p, m.m.Unlink(p)) }

func (m *mount) Rename(from, to string) error { return toErrno("rename", from, m.m.Rename(from, to)) }

func (m *mount) ChangeDir(p string) error { return toErrno("chdir", p, m.m.ChangeDir(p)) }

func (m *mount) CurrentDir() string { return m.m.CurrentDir() }

func (m *mount) OpenDir(p string) (remotefs.Dir, error) {
	d, err := m.m.OpenDir(p)
	if err != nil {
		return nil, toErrno("opendir", p, err)
	}
	return &dir{d: d, name: p}, nil
}

type file struct {
	f    *cephfs.File
	name string
}

// Pread maps go-ceph's io.EOF at end of file to the 0, nil convention.
func (f *file) Pread(b []byte, off int64) (int, error) {
	n, err := f.f.ReadAt(b, off)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, toErrno("read", f.name, err)
}

func (f *file) Pwrite(b []byte, off int64) (int, error) {
	n, err := f.f.WriteAt(b, off)
	return n, toErrno("write", f.name, err)
}

func (f *file) Close() error { return toErrno("close", f.name, f.f.Close()) }

type dir struct {
	d    *cephfs.Directory
	name string

	// lookahead holds an entry read by ReadDirNames that did not fit.
	lookahead *remotefs.DirEntry
}

func convertDType(t cephfs.DType) remotefs.EntryType {
	switch t {
	case cephfs.DTypeReg:
		return remotefs.TypeRegular
	case cephfs.DTypeDir:
		return remotefs.TypeDir
	case cephfs.DTypeLnk:
		return remotefs.TypeSymlink
	default:
		return remotefs.TypeOther
	}
}

func (d *dir) ReadDir() (*remotefs.DirEntry, error) {
	if e := d.lookahead; e != nil {
		d.lookahead = nil
		return e, nil
	}
	e, err := d.d.ReadDir()
	if err != nil {
		return nil, toErrno("readdir", d.name, err)
	}
	if e == nil {
		return nil, nil
	}
	return &remotefs.DirEntry{Name: e.Name(), Inode: uint64(e.Inode()), Type: convertDType(e.DType())}, nil
}

func (d *dir) ReadDirPlus() (*remotefs.DirEntry, error) {
	e, err := d.d.ReadDirPlus(cephfs.StatxBasicStats, cephfs.AtSymlinkNofollow)
	if err != nil {
		return nil, toErrno("readdirplus", d.name, err)
	}
	if e == nil {
		return nil, nil
	}
	st := convertStatx(e.Statx())
	return &remotefs.DirEntry{Name: e.Name(), Inode: st.Inode, Type: st.EntryType(), Statx: st}, nil
}

// ReadDirNames emulates ceph_getdnames on top of readdir.
func (d *dir) ReadDirNames(buf []byte) (int, error) {
	written := 0
	for {
		e, err := d.ReadDir()
		if err != nil {
			return written, err
		}
		if e == nil {
			return written, nil
		}
		need := len(e.Name) + 1
		if written+need > len(buf) {
			d.lookahead = e
			if written == 0 {
				return 0, remotefs.PathErr("getdnames", d.name, unix.ERANGE)
			}
			return written, nil
		}
		remotefs.PackNames(buf[written:], []string{e.Name})
		written += need
	}
}

func (d *dir) Close() error { return toErrno("closedir", d.name, d.d.Close()) }
