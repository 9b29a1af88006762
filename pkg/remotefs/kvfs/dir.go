package kvfs

import (
	"path"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// dir is a snapshot of a directory taken at OpenDir time. Entries created
// or removed afterwards are not reflected, which keeps a stream stable while
// the caller mutates the directory (RemoveTree unlinks while iterating).
type dir struct {
	m       *mount
	name    string
	entries []remotefs.DirEntry
	pos     int
	closed  bool
}

func (m *mount) OpenDir(p string) (remotefs.Dir, error) {
	storePath, _, err := m.resolve("opendir", p)
	if err != nil {
		return nil, err
	}

	var entries []remotefs.DirEntry
	err = m.d.view(func(txn Txn) error {
		self, err := getNode(txn, storePath)
		if err != nil {
			return err
		}
		if !self.isDir() {
			return unix.ENOTDIR
		}

		parentPath := path.Dir(storePath)
		if storePath == m.root {
			parentPath = storePath
		}
		parent, err := getNode(txn, parentPath)
		if err != nil {
			return err
		}
		entries = append(entries, makeEntry(".", self), makeEntry("..", parent))

		names, err := children(txn, storePath)
		if err != nil {
			return err
		}
		for _, name := range names {
			child, err := getNode(txn, path.Join(storePath, name))
			if err != nil {
				return err
			}
			entries = append(entries, makeEntry(name, child))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("opendir", p, err)
	}

	return &dir{m: m, name: p, entries: entries}, nil
}

func makeEntry(name string, n *node) remotefs.DirEntry {
	st := n.statx()
	return remotefs.DirEntry{
		Name:  name,
		Inode: n.Inode,
		Type:  st.EntryType(),
		Statx: st,
	}
}

func (d *dir) next(op string, plus bool) (*remotefs.DirEntry, error) {
	if d.closed || !d.m.mounted {
		return nil, wrapErr(op, d.name, unix.EBADF)
	}
	if d.pos >= len(d.entries) {
		return nil, nil
	}
	entry := d.entries[d.pos]
	d.pos++
	if !plus {
		entry.Statx = nil
	}
	return &entry, nil
}

func (d *dir) ReadDir() (*remotefs.DirEntry, error) { return d.next("readdir", false) }

func (d *dir) ReadDirPlus() (*remotefs.DirEntry, error) { return d.next("readdirplus", true) }

func (d *dir) ReadDirNames(buf []byte) (int, error) {
	if d.closed || !d.m.mounted {
		return 0, wrapErr("getdnames", d.name, unix.EBADF)
	}
	if d.pos >= len(d.entries) {
		return 0, nil
	}

	names := make([]string, 0, len(d.entries)-d.pos)
	for _, e := range d.entries[d.pos:] {
		names = append(names, e.Name)
	}
	written, packed := remotefs.PackNames(buf, names)
	if packed == 0 {
		return 0, wrapErr("getdnames", d.name, unix.ERANGE)
	}
	d.pos += packed
	return written, nil
}

func (d *dir) Close() error {
	if d.closed {
		return wrapErr("closedir", d.name, unix.EBADF)
	}
	d.closed = true
	return nil
}
