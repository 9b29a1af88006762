package testing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// RunFileTests covers open flags, positional I/O, stat and unlink.
func (suite *DriverTestSuite) RunFileTests(t *testing.T) {
	t.Run("WriteReadRoundTrip", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/hello.txt", []byte("hello world"))
		assert.Equal(t, []byte("hello world"), readFile(t, m, "/hello.txt"))

		st, err := m.Statx("/hello.txt")
		require.NoError(t, err)
		assert.True(t, st.IsRegular())
		assert.EqualValues(t, 11, st.Size)
	})

	t.Run("TruncateOnOpen", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("a much longer first version"))
		writeFile(t, m, "/f", []byte("short"))
		assert.Equal(t, []byte("short"), readFile(t, m, "/f"))
	})

	t.Run("OpenMissingWithoutCreate", func(t *testing.T) {
		m := suite.mount(t)
		_, err := m.Open("/missing", unix.O_RDONLY, 0)
		requireErrno(t, err, unix.ENOENT)
	})

	t.Run("CreateInMissingParent", func(t *testing.T) {
		m := suite.mount(t)
		_, err := m.Open("/no/such/dir/f", unix.O_WRONLY|unix.O_CREAT, 0o644)
		requireErrno(t, err, unix.ENOENT)
	})

	t.Run("ExclusiveCreate", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		_, err := m.Open("/f", unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL, 0o644)
		requireErrno(t, err, unix.EEXIST)
	})

	t.Run("OpenDirectoryForWrite", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d", 0o755))
		_, err := m.Open("/d", unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
		requireErrno(t, err, unix.EISDIR)
	})

	t.Run("ReadPastEnd", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("abc"))

		f, err := m.Open("/f", unix.O_RDONLY, 0)
		require.NoError(t, err)
		defer f.Close()

		buf := make([]byte, 8)
		n, err := f.Pread(buf, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, byte('c'), buf[0])

		n, err = f.Pread(buf, 3)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("SparseWriteZeroFills", func(t *testing.T) {
		m := suite.mount(t)
		f, err := m.Open("/sparse", unix.O_RDWR|unix.O_CREAT, 0o644)
		require.NoError(t, err)
		n, err := f.Pwrite([]byte("end"), 5)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		require.NoError(t, f.Close())

		want := append(bytes.Repeat([]byte{0}, 5), "end"...)
		assert.Equal(t, want, readFile(t, m, "/sparse"))
	})

	t.Run("AccessModeEnforced", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("data"))

		ro, err := m.Open("/f", unix.O_RDONLY, 0)
		require.NoError(t, err)
		_, err = ro.Pwrite([]byte("x"), 0)
		requireErrno(t, err, unix.EBADF)
		require.NoError(t, ro.Close())

		wo, err := m.Open("/f", unix.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = wo.Pread(make([]byte, 4), 0)
		requireErrno(t, err, unix.EBADF)
		require.NoError(t, wo.Close())
	})

	t.Run("Unlink", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		require.NoError(t, m.Unlink("/f"))

		_, err := m.Statx("/f")
		requireErrno(t, err, unix.ENOENT)
		requireErrno(t, m.Unlink("/f"), unix.ENOENT)
	})

	t.Run("UnlinkDirectory", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d", 0o755))
		requireErrno(t, m.Unlink("/d"), unix.EISDIR)
	})
}
