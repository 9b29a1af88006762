package kvfs

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	xdr "github.com/rasky/go-xdr/xdr2"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// node is the persisted attribute record of a file or directory.
type node struct {
	Mode  uint32
	Size  uint64
	Inode uint64
	Mtime int64 // unix nanoseconds
}

func (n *node) isDir() bool { return n.Mode&unix.S_IFMT == unix.S_IFDIR }

func (n *node) statx() *remotefs.Statx {
	return &remotefs.Statx{
		Mode:  n.Mode,
		Size:  n.Size,
		Inode: n.Inode,
		Mtime: time.Unix(0, n.Mtime),
	}
}

func encodeNode(n *node) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, n); err != nil {
		return nil, fmt.Errorf("encode node: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeNode(data []byte) (*node, error) {
	var n node
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &n); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &n, nil
}

// getNode loads the node at p, mapping a missing key to ENOENT.
func getNode(txn Txn, p string) (*node, error) {
	data, err := txn.Get(keyNode(p))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, unix.ENOENT
	}
	if err != nil {
		return nil, err
	}
	return decodeNode(data)
}

func putNode(txn Txn, p string, n *node) error {
	data, err := encodeNode(n)
	if err != nil {
		return err
	}
	return txn.Put(keyNode(p), data)
}

// nextInode allocates a new inode number from the persisted counter.
func nextInode(txn Txn) (uint64, error) {
	var ino uint64
	data, err := txn.Get(keyInodeCounter)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		ino = 1
	case err != nil:
		return 0, err
	default:
		if _, err := xdr.Unmarshal(bytes.NewReader(data), &ino); err != nil {
			return 0, fmt.Errorf("decode inode counter: %w", err)
		}
	}
	ino++

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, ino); err != nil {
		return 0, fmt.Errorf("encode inode counter: %w", err)
	}
	if err := txn.Put(keyInodeCounter, buf.Bytes()); err != nil {
		return 0, err
	}
	return ino, nil
}

// getData returns the content of the file at p (empty when never written).
func getData(txn Txn, p string) ([]byte, error) {
	data, err := txn.Get(keyData(p))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return data, err
}

// children returns the names of the direct children of dir in key order.
func children(txn Txn, dir string) ([]string, error) {
	keys, err := txn.Keys(childPrefix(dir))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, k := range keys {
		if name, ok := childName(dir, k); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
