// Package memory provides an in-memory remote filesystem.
//
// It is the backend used by tests and by the CLI when no cluster is
// configured. Contents are lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
)

// Store implements kvfs.Store using a map.
//
// Thread Safety:
// View takes a read lock and Update an exclusive lock for the whole
// transaction. Update buffers its writes and applies them only when the
// transaction function succeeds.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// New creates a remote filesystem driver backed by a fresh in-memory store.
func New(ctx context.Context, opts ...kvfs.Option) (*kvfs.Driver, error) {
	return kvfs.NewDriver(ctx, "memory", NewStore(), opts...)
}

// ============================================================================
// kvfs.Store Interface Implementation
// ============================================================================

func (s *Store) View(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&txn{store: s})
}

func (s *Store) Update(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{store: s, pending: make(map[string][]byte), writable: true}
	if err := fn(t); err != nil {
		return err
	}

	// Commit: a nil pending value is a deletion.
	for k, v := range t.pending {
		if v == nil {
			delete(s.data, k)
		} else {
			s.data[k] = v
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// ============================================================================
// Transaction
// ============================================================================

type txn struct {
	store    *Store
	pending  map[string][]byte
	writable bool
}

func (t *txn) Get(key string) ([]byte, error) {
	if v, ok := t.pending[key]; ok {
		if v == nil {
			return nil, kvfs.ErrKeyNotFound
		}
		return clone(v), nil
	}
	v, ok := t.store.data[key]
	if !ok {
		return nil, kvfs.ErrKeyNotFound
	}
	return clone(v), nil
}

func (t *txn) Put(key string, value []byte) error {
	if !t.writable {
		return errReadOnly
	}
	v := clone(value)
	if v == nil {
		v = []byte{}
	}
	t.pending[key] = v
	return nil
}

func (t *txn) Delete(key string) error {
	if !t.writable {
		return errReadOnly
	}
	t.pending[key] = nil
	return nil
}

func (t *txn) Keys(prefix string) ([]string, error) {
	seen := make(map[string]bool)
	var keys []string
	for k, v := range t.pending {
		if strings.HasPrefix(k, prefix) {
			seen[k] = true
			if v != nil {
				keys = append(keys, k)
			}
		}
	}
	for k := range t.store.data {
		if strings.HasPrefix(k, prefix) && !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
