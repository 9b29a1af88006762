package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// DriverTestSuite is a conformance suite for remotefs.Driver implementations.
// It tests the POSIX contract the session layer relies on, not backend
// internals, so it runs unchanged against every kvfs backend.
//
// Usage:
//
//	func TestMyDriver(t *testing.T) {
//	    suite := &testing.DriverTestSuite{
//	        NewDriver: func(t *testing.T) remotefs.Driver {
//	            return mydriver.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type DriverTestSuite struct {
	// NewDriver creates a driver over an empty namespace for each test.
	NewDriver func(t *testing.T) remotefs.Driver
}

// Run executes all tests in the suite.
func (suite *DriverTestSuite) Run(t *testing.T) {
	t.Run("Lifecycle", suite.RunLifecycleTests)
	t.Run("Files", suite.RunFileTests)
	t.Run("Directories", suite.RunDirectoryTests)
	t.Run("Rename", suite.RunRenameTests)
	t.Run("Enumeration", suite.RunEnumerationTests)
}

func testContext() context.Context {
	return context.Background()
}

// mount creates and mounts a handle as "admin" at "/", releasing it when
// the test ends.
func (suite *DriverTestSuite) mount(t *testing.T) remotefs.Mount {
	t.Helper()

	m, err := suite.NewDriver(t).Create("admin")
	require.NoError(t, err)
	require.NoError(t, m.Mount(testContext(), "/"))

	t.Cleanup(func() {
		if m.IsMounted() {
			_ = m.Unmount()
		}
		_ = m.Release()
	})
	return m
}

// writeFile creates path with data using a single write.
func writeFile(t *testing.T, m remotefs.Mount, path string, data []byte) {
	t.Helper()

	f, err := m.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Pwrite(data, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

// readFile reads path completely.
func readFile(t *testing.T, m remotefs.Mount, path string) []byte {
	t.Helper()

	f, err := m.Open(path, unix.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := f.Pread(buf, int64(len(out)))
		require.NoError(t, err)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func requireErrno(t *testing.T, err error, code unix.Errno) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, remotefs.ErrnoOf(err), "unexpected error: %v", err)
}
