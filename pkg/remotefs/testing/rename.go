package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// RunRenameTests covers rename of files and directory subtrees.
func (suite *DriverTestSuite) RunRenameTests(t *testing.T) {
	t.Run("RenameFile", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/src", []byte("payload"))
		require.NoError(t, m.Rename("/src", "/dst"))

		assert.Equal(t, []byte("payload"), readFile(t, m, "/dst"))
		_, err := m.Statx("/src")
		requireErrno(t, err, unix.ENOENT)
	})

	t.Run("RenameOverwrites", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/src", []byte("new"))
		writeFile(t, m, "/dst", []byte("old content"))
		require.NoError(t, m.Rename("/src", "/dst"))

		assert.Equal(t, []byte("new"), readFile(t, m, "/dst"))
	})

	t.Run("RenameDirectoryMovesSubtree", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/a/b", 0o755))
		writeFile(t, m, "/a/b/f", []byte("deep"))
		writeFile(t, m, "/ab", []byte("sibling with shared prefix"))

		require.NoError(t, m.Rename("/a", "/z"))

		assert.Equal(t, []byte("deep"), readFile(t, m, "/z/b/f"))
		assert.Equal(t, []byte("sibling with shared prefix"), readFile(t, m, "/ab"))
		_, err := m.Statx("/a")
		requireErrno(t, err, unix.ENOENT)
	})

	t.Run("RenameIntoOwnSubtree", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/a/b", 0o755))
		requireErrno(t, m.Rename("/a", "/a/b/c"), unix.EINVAL)
	})

	t.Run("RenameDirectoryOntoFile", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d", 0o755))
		writeFile(t, m, "/f", []byte("x"))
		requireErrno(t, m.Rename("/d", "/f"), unix.ENOTDIR)
		requireErrno(t, m.Rename("/f", "/d"), unix.EISDIR)
	})

	t.Run("RenameMissingSource", func(t *testing.T) {
		m := suite.mount(t)
		requireErrno(t, m.Rename("/missing", "/dst"), unix.ENOENT)
	})

	t.Run("RenameIntoMissingParent", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		requireErrno(t, m.Rename("/f", "/no/such/f"), unix.ENOENT)
	})
}
