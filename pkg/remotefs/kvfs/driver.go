package kvfs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Driver is a remotefs.Driver backed by a Store.
//
// All mounts created by one Driver share its store and its lock, so several
// sessions can work on the same namespace concurrently.
type Driver struct {
	name    string
	store   Store
	keyring map[string]string
	maxIO   int
	now     func() time.Time

	mu sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithKeyring enables authentication. Mount then requires the client id to
// be present and the configured secret ("key" option, or the content of the
// "keyfile" option) to match.
func WithKeyring(keyring map[string]string) Option {
	return func(d *Driver) {
		d.keyring = make(map[string]string, len(keyring))
		for id, key := range keyring {
			d.keyring[id] = key
		}
	}
}

// WithMaxIOSize caps the number of bytes a single Pwrite transfers,
// producing short writes the way a busy cluster does. Reads are never
// capped: like libcephfs, Pread only comes up short at end of file.
// Zero means no cap.
func WithMaxIOSize(n int) Option {
	return func(d *Driver) { d.maxIO = n }
}

// WithClock overrides the time source used for modification times.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver creates a Driver named name over store, creating the namespace
// root if the store is empty.
func NewDriver(ctx context.Context, name string, store Store, opts ...Option) (*Driver, error) {
	d := &Driver{
		name:  name,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	err := store.Update(ctx, func(txn Txn) error {
		_, err := getNode(txn, "/")
		if !errors.Is(err, unix.ENOENT) {
			return err
		}
		ino, err := nextInode(txn)
		if err != nil {
			return err
		}
		return putNode(txn, "/", &node{
			Mode:  unix.S_IFDIR | 0o755,
			Inode: ino,
			Mtime: d.now().UnixNano(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("initialize %s namespace root: %w", name, err)
	}

	return d, nil
}

// Name implements remotefs.Driver.
func (d *Driver) Name() string { return d.name }

// Create implements remotefs.Driver.
func (d *Driver) Create(id string) (remotefs.Mount, error) {
	if id == "" {
		return nil, remotefs.PathErr("create", id, unix.EINVAL)
	}
	return &mount{
		d:       d,
		id:      id,
		options: make(map[string]string),
		cwd:     "/",
	}, nil
}

// Close closes the underlying store.
func (d *Driver) Close() error {
	return d.store.Close()
}

// view and update serialize access across every mount of the driver.
func (d *Driver) view(fn func(txn Txn) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.View(context.Background(), fn)
}

func (d *Driver) update(fn func(txn Txn) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Update(context.Background(), fn)
}

func (d *Driver) clip(n int) int {
	if d.maxIO > 0 && n > d.maxIO {
		return d.maxIO
	}
	return n
}
