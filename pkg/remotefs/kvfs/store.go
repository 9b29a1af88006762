// Package kvfs implements the remotefs call surface on top of a transactional
// key/value store.
//
// The engine owns every POSIX rule (path resolution, O_CREAT/O_TRUNC
// handling, errno selection, directory streams) so that a backend only has to
// provide Get/Put/Delete/Keys inside View and Update transactions. The
// memory, badger, sqlite and s3 packages are such backends.
package kvfs

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Txn.Get when the key does not exist.
var ErrKeyNotFound = errors.New("kvfs: key not found")

// Store is a key/value store with read-only and read-write transactions.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(txn Txn) error) error

	// Update runs fn in a read-write transaction. Writes are committed only
	// when fn returns nil.
	Update(ctx context.Context, fn func(txn Txn) error) error

	Close() error
}

// Txn is the operation set available inside a transaction.
type Txn interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	// The returned slice is owned by the caller.
	Get(key string) ([]byte, error)

	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns every key starting with prefix, in ascending byte order.
	Keys(prefix string) ([]string, error)
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or "" when no such key exists (prefix is all 0xff bytes).
//
// Backends with range queries use it as an exclusive upper bound.
func PrefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
