// Package badger provides a persistent remote filesystem stored in BadgerDB.
//
// It lets the session layer be exercised against durable state without a
// Ceph cluster: a namespace written by one process is visible to the next.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
)

// StoreConfig contains configuration for the BadgerDB store.
type StoreConfig struct {
	// DBPath is the directory where BadgerDB keeps its files
	DBPath string

	// InMemory runs BadgerDB without touching disk (DBPath is ignored)
	InMemory bool

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64
}

// Store implements kvfs.Store on a BadgerDB database.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; conflicting Update
// transactions fail with badger.ErrConflict, which the kvfs driver avoids by
// serializing its own writes.
type Store struct {
	db *badger.DB
}

// NewStore opens (or creates) a BadgerDB database.
func NewStore(ctx context.Context, config StoreConfig) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	// File contents are stored as values, so keep compression off and the
	// caches small: the workload is a client tool, not a server.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &Store{db: db}, nil
}

// New opens a BadgerDB database and wraps it in a remote filesystem driver.
func New(ctx context.Context, config StoreConfig, opts ...kvfs.Option) (*kvfs.Driver, error) {
	store, err := NewStore(ctx, config)
	if err != nil {
		return nil, err
	}
	driver, err := kvfs.NewDriver(ctx, "badger", store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return driver, nil
}

func (s *Store) View(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(t *badger.Txn) error {
		return fn(&txn{t: t})
	})
}

func (s *Store) Update(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(t *badger.Txn) error {
		return fn(&txn{t: t})
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txn struct {
	t *badger.Txn
}

func (t *txn) Get(key string) ([]byte, error) {
	item, err := t.t.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, kvfs.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *txn) Put(key string, value []byte) error {
	return t.t.Set([]byte(key), value)
}

func (t *txn) Delete(key string) error {
	return t.t.Delete([]byte(key))
}

func (t *txn) Keys(prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)

	it := t.t.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}
