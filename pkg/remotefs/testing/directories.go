package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// RunDirectoryTests covers mkdirs, rmdir and the working directory.
func (suite *DriverTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("MakeDirsNested", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/a/b/c", 0o755))

		for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
			st, err := m.Statx(p)
			require.NoError(t, err, p)
			assert.True(t, st.IsDir(), p)
		}
	})

	t.Run("MakeDirsExisting", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/a/b", 0o755))
		requireErrno(t, m.MakeDirs("/a/b", 0o755), unix.EEXIST)
		requireErrno(t, m.MakeDirs("/", 0o755), unix.EEXIST)
	})

	t.Run("MakeDirsThroughFile", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		requireErrno(t, m.MakeDirs("/f/sub", 0o755), unix.ENOTDIR)
	})

	t.Run("RemoveDir", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d/sub", 0o755))

		requireErrno(t, m.RemoveDir("/d"), unix.ENOTEMPTY)
		require.NoError(t, m.RemoveDir("/d/sub"))
		require.NoError(t, m.RemoveDir("/d"))

		_, err := m.Statx("/d")
		requireErrno(t, err, unix.ENOENT)
	})

	t.Run("RemoveDirOnFile", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		requireErrno(t, m.RemoveDir("/f"), unix.ENOTDIR)
	})

	t.Run("ChangeDir", func(t *testing.T) {
		m := suite.mount(t)
		assert.Equal(t, "/", m.CurrentDir())

		require.NoError(t, m.MakeDirs("/work/dir", 0o755))
		require.NoError(t, m.ChangeDir("/work"))
		assert.Equal(t, "/work", m.CurrentDir())

		require.NoError(t, m.ChangeDir("dir"))
		assert.Equal(t, "/work/dir", m.CurrentDir())

		writeFile(t, m, "relative.txt", []byte("rel"))
		assert.Equal(t, []byte("rel"), readFile(t, m, "/work/dir/relative.txt"))

		require.NoError(t, m.ChangeDir("../.."))
		assert.Equal(t, "/", m.CurrentDir())
	})

	t.Run("ChangeDirToFile", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		requireErrno(t, m.ChangeDir("/f"), unix.ENOTDIR)
		requireErrno(t, m.ChangeDir("/missing"), unix.ENOENT)
	})
}
