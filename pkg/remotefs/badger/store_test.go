package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
	remotefstesting "github.com/marmos91/cephtool/pkg/remotefs/testing"
)

func newTestDriver(t *testing.T, dir string) remotefs.Driver {
	t.Helper()
	driver, err := New(context.Background(), StoreConfig{DBPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return driver
}

func TestBadgerDriver(t *testing.T) {
	suite := &remotefstesting.DriverTestSuite{
		NewDriver: func(t *testing.T) remotefs.Driver {
			return newTestDriver(t, t.TempDir())
		},
	}
	suite.Run(t)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	driver, err := New(ctx, StoreConfig{DBPath: dir})
	require.NoError(t, err)

	m, err := driver.Create("admin")
	require.NoError(t, err)
	require.NoError(t, m.Mount(ctx, "/"))
	require.NoError(t, m.MakeDirs("/persist", 0o755))
	require.NoError(t, m.Unmount())
	require.NoError(t, m.Release())
	require.NoError(t, driver.Close())

	reopened := newTestDriver(t, dir)
	m, err = reopened.Create("admin")
	require.NoError(t, err)
	require.NoError(t, m.Mount(ctx, "/"))
	defer func() {
		_ = m.Unmount()
		_ = m.Release()
	}()

	st, err := m.Statx("/persist")
	require.NoError(t, err)
	assert.True(t, st.IsDir())

	// The namespace root is not recreated on reopen.
	require.Equal(t, unix.EEXIST, remotefs.ErrnoOf(m.MakeDirs("/persist", 0o755)))
}
