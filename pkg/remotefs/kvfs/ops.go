package kvfs

import (
	"errors"
	"path"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// checkParent verifies that the parent of p exists and is a directory.
func checkParent(txn Txn, p string) error {
	parent, err := getNode(txn, path.Dir(p))
	if err != nil {
		return err
	}
	if !parent.isDir() {
		return unix.ENOTDIR
	}
	return nil
}

func (m *mount) Statx(p string) (*remotefs.Statx, error) {
	storePath, _, err := m.resolve("statx", p)
	if err != nil {
		return nil, err
	}
	var st *remotefs.Statx
	err = m.d.view(func(txn Txn) error {
		n, err := getNode(txn, storePath)
		if err != nil {
			return err
		}
		st = n.statx()
		return nil
	})
	if err != nil {
		return nil, wrapErr("statx", p, err)
	}
	return st, nil
}

func (m *mount) MakeDirs(p string, mode uint32) error {
	storePath, _, err := m.resolve("mkdirs", p)
	if err != nil {
		return err
	}

	err = m.d.update(func(txn Txn) error {
		created := false
		cur := "/"
		for _, part := range strings.Split(storePath, "/") {
			if part == "" {
				continue
			}
			cur = path.Join(cur, part)

			n, err := getNode(txn, cur)
			switch {
			case errors.Is(err, unix.ENOENT):
				ino, err := nextInode(txn)
				if err != nil {
					return err
				}
				err = putNode(txn, cur, &node{
					Mode:  unix.S_IFDIR | mode&0o7777,
					Inode: ino,
					Mtime: m.d.now().UnixNano(),
				})
				if err != nil {
					return err
				}
				created = true
			case err != nil:
				return err
			case !n.isDir():
				return unix.ENOTDIR
			}
		}
		if !created {
			return unix.EEXIST
		}
		return nil
	})
	return wrapErr("mkdirs", p, err)
}

func (m *mount) RemoveDir(p string) error {
	storePath, _, err := m.resolve("rmdir", p)
	if err != nil {
		return err
	}

	err = m.d.update(func(txn Txn) error {
		n, err := getNode(txn, storePath)
		if err != nil {
			return err
		}
		if !n.isDir() {
			return unix.ENOTDIR
		}
		if storePath == m.root {
			return unix.EBUSY
		}
		names, err := children(txn, storePath)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return unix.ENOTEMPTY
		}
		return txn.Delete(keyNode(storePath))
	})
	return wrapErr("rmdir", p, err)
}

func (m *mount) Unlink(p string) error {
	storePath, _, err := m.resolve("unlink", p)
	if err != nil {
		return err
	}

	err = m.d.update(func(txn Txn) error {
		n, err := getNode(txn, storePath)
		if err != nil {
			return err
		}
		if n.isDir() {
			return unix.EISDIR
		}
		if err := txn.Delete(keyData(storePath)); err != nil {
			return err
		}
		return txn.Delete(keyNode(storePath))
	})
	return wrapErr("unlink", p, err)
}

// Rename moves from onto to, replacing a file or an empty directory at to.
func (m *mount) Rename(from, to string) error {
	src, _, err := m.resolve("rename", from)
	if err != nil {
		return err
	}
	dst, _, err := m.resolve("rename", to)
	if err != nil {
		return err
	}

	err = m.d.update(func(txn Txn) error {
		srcNode, err := getNode(txn, src)
		if err != nil {
			return err
		}
		if src == m.root || dst == m.root {
			return unix.EBUSY
		}
		if src == dst {
			return nil
		}
		if strings.HasPrefix(dst, src+"/") {
			return unix.EINVAL
		}
		if err := checkParent(txn, dst); err != nil {
			return err
		}

		dstNode, err := getNode(txn, dst)
		switch {
		case errors.Is(err, unix.ENOENT):
		case err != nil:
			return err
		case dstNode.isDir() && !srcNode.isDir():
			return unix.EISDIR
		case !dstNode.isDir() && srcNode.isDir():
			return unix.ENOTDIR
		default:
			if dstNode.isDir() {
				names, err := children(txn, dst)
				if err != nil {
					return err
				}
				if len(names) > 0 {
					return unix.ENOTEMPTY
				}
			}
			if err := txn.Delete(keyData(dst)); err != nil {
				return err
			}
			if err := txn.Delete(keyNode(dst)); err != nil {
				return err
			}
		}

		for _, prefix := range []string{prefixNode, prefixData} {
			if err := moveSubtree(txn, prefix, src, dst); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr("rename", from, err)
}

// moveSubtree rewrites every key under prefix+src to live under prefix+dst.
func moveSubtree(txn Txn, prefix, src, dst string) error {
	keys, err := txn.Keys(prefix + src)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !inSubtree(prefix, src, k) {
			continue
		}
		value, err := txn.Get(k)
		if err != nil {
			return err
		}
		if err := txn.Put(prefix+dst+strings.TrimPrefix(k, prefix+src), value); err != nil {
			return err
		}
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
