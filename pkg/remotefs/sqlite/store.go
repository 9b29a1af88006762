// Package sqlite provides a persistent remote filesystem stored in a single
// SQLite database file (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID`

// Store implements kvfs.Store on a SQLite table of BLOB key/value pairs.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path. Use ":memory:" for a
// private in-memory database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// One connection: an in-memory database is per connection, and the
	// kvfs driver serializes writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New opens a SQLite database and wraps it in a remote filesystem driver.
func New(ctx context.Context, path string, opts ...kvfs.Option) (*kvfs.Driver, error) {
	store, err := NewStore(ctx, path)
	if err != nil {
		return nil, err
	}
	driver, err := kvfs.NewDriver(ctx, "sqlite", store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return driver, nil
}

func (s *Store) View(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&txn{ctx: ctx, tx: tx})
}

func (s *Store) Update(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&txn{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type txn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *txn) Get(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM kv WHERE key = ?`, []byte(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvfs.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (t *txn) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		[]byte(key), value)
	return err
}

func (t *txn) Delete(key string) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE key = ?`, []byte(key))
	return err
}

func (t *txn) Keys(prefix string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if end := kvfs.PrefixEnd(prefix); end != "" {
		rows, err = t.tx.QueryContext(t.ctx,
			`SELECT key FROM kv WHERE key >= ? AND key < ? ORDER BY key`,
			[]byte(prefix), []byte(end))
	} else {
		rows, err = t.tx.QueryContext(t.ctx,
			`SELECT key FROM kv WHERE key >= ? ORDER BY key`, []byte(prefix))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key []byte
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, string(key))
	}
	return keys, rows.Err()
}
