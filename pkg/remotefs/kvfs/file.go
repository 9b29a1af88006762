package kvfs

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

type file struct {
	m      *mount
	path   string // store path
	name   string // caller path, for errors
	flags  int
	closed bool
}

func (m *mount) Open(p string, flags int, mode uint32) (remotefs.File, error) {
	storePath, _, err := m.resolve("open", p)
	if err != nil {
		return nil, err
	}
	acc := flags & unix.O_ACCMODE
	writable := acc == unix.O_WRONLY || acc == unix.O_RDWR

	err = m.d.update(func(txn Txn) error {
		n, err := getNode(txn, storePath)
		switch {
		case errors.Is(err, unix.ENOENT):
			if flags&unix.O_CREAT == 0 {
				return err
			}
			if err := checkParent(txn, storePath); err != nil {
				return err
			}
			ino, err := nextInode(txn)
			if err != nil {
				return err
			}
			return putNode(txn, storePath, &node{
				Mode:  unix.S_IFREG | mode&0o7777,
				Inode: ino,
				Mtime: m.d.now().UnixNano(),
			})
		case err != nil:
			return err
		}

		if flags&unix.O_CREAT != 0 && flags&unix.O_EXCL != 0 {
			return unix.EEXIST
		}
		if n.isDir() && writable {
			return unix.EISDIR
		}
		if flags&unix.O_TRUNC != 0 && writable && n.Size > 0 {
			n.Size = 0
			n.Mtime = m.d.now().UnixNano()
			if err := txn.Delete(keyData(storePath)); err != nil {
				return err
			}
			return putNode(txn, storePath, n)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("open", p, err)
	}

	return &file{m: m, path: storePath, name: p, flags: flags}, nil
}

func (f *file) usable(op string, want int) error {
	if f.closed || !f.m.mounted {
		return wrapErr(op, f.name, unix.EBADF)
	}
	if f.flags&unix.O_ACCMODE == want {
		return wrapErr(op, f.name, unix.EBADF)
	}
	return nil
}

// Pread reads up to len(b) bytes at off. It returns 0, nil at end of file.
func (f *file) Pread(b []byte, off int64) (int, error) {
	if err := f.usable("read", unix.O_WRONLY); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, wrapErr("read", f.name, unix.EINVAL)
	}

	var n int
	err := f.m.d.view(func(txn Txn) error {
		nd, err := getNode(txn, f.path)
		if err != nil {
			return err
		}
		if nd.isDir() {
			return unix.EISDIR
		}
		data, err := getData(txn, f.path)
		if err != nil {
			return err
		}
		if off >= int64(len(data)) {
			return nil
		}
		n = copy(b, data[off:])
		return nil
	})
	if err != nil {
		return 0, wrapErr("read", f.name, err)
	}
	return n, nil
}

// Pwrite writes b at off, possibly transferring fewer bytes than len(b).
func (f *file) Pwrite(b []byte, off int64) (int, error) {
	if err := f.usable("write", unix.O_RDONLY); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, wrapErr("write", f.name, unix.EINVAL)
	}
	if len(b) == 0 {
		return 0, nil
	}
	b = b[:f.m.d.clip(len(b))]

	err := f.m.d.update(func(txn Txn) error {
		nd, err := getNode(txn, f.path)
		if err != nil {
			return err
		}
		data, err := getData(txn, f.path)
		if err != nil {
			return err
		}
		end := off + int64(len(b))
		if end > int64(len(data)) {
			grown := make([]byte, end)
			copy(grown, data)
			data = grown
		}
		copy(data[off:], b)
		if err := txn.Put(keyData(f.path), data); err != nil {
			return err
		}
		nd.Size = uint64(len(data))
		nd.Mtime = f.m.d.now().UnixNano()
		return putNode(txn, f.path, nd)
	})
	if err != nil {
		return 0, wrapErr("write", f.name, err)
	}
	return len(b), nil
}

func (f *file) Close() error {
	if f.closed {
		return wrapErr("close", f.name, unix.EBADF)
	}
	f.closed = true
	return nil
}
