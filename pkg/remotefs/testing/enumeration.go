package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// RunEnumerationTests covers the three directory stream protocols.
func (suite *DriverTestSuite) RunEnumerationTests(t *testing.T) {
	t.Run("ReadDirIncludesPseudoEntries", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d/sub", 0o755))
		writeFile(t, m, "/d/file", []byte("x"))

		d, err := m.OpenDir("/d")
		require.NoError(t, err)
		defer d.Close()

		types := map[string]remotefs.EntryType{}
		for {
			e, err := d.ReadDir()
			require.NoError(t, err)
			if e == nil {
				break
			}
			assert.Nil(t, e.Statx)
			types[e.Name] = e.Type
		}
		assert.Len(t, types, 4)
		assert.Equal(t, remotefs.TypeDir, types["."])
		assert.Equal(t, remotefs.TypeDir, types[".."])
		assert.Equal(t, remotefs.TypeDir, types["sub"])
		assert.Equal(t, remotefs.TypeRegular, types["file"])
	})

	t.Run("ReadDirPlusCarriesStatx", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/sized", []byte("12345"))

		d, err := m.OpenDir("/")
		require.NoError(t, err)
		defer d.Close()

		found := false
		for {
			e, err := d.ReadDirPlus()
			require.NoError(t, err)
			if e == nil {
				break
			}
			require.NotNil(t, e.Statx)
			if e.Name == "sized" {
				found = true
				assert.EqualValues(t, 5, e.Statx.Size)
			}
		}
		assert.True(t, found)
	})

	t.Run("ReadDirNamesRangeDoesNotAdvance", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/d", 0o755))
		writeFile(t, m, "/d/a-rather-long-file-name", []byte("x"))

		d, err := m.OpenDir("/d")
		require.NoError(t, err)
		defer d.Close()

		// "." and ".." fit in a 5 byte buffer, the long name does not.
		small := make([]byte, 5)
		n, err := d.ReadDirNames(small)
		require.NoError(t, err)
		assert.Equal(t, []byte(".\x00..\x00"), small[:n])

		_, err = d.ReadDirNames(small)
		requireErrno(t, err, unix.ERANGE)

		large := make([]byte, 64)
		n, err = d.ReadDirNames(large)
		require.NoError(t, err)
		assert.Equal(t, []byte("a-rather-long-file-name\x00"), large[:n])

		n, err = d.ReadDirNames(large)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ReadDirNamesManyEntries", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.MakeDirs("/many", 0o755))
		for i := range 200 {
			writeFile(t, m, fmt.Sprintf("/many/entry-%04d", i), nil)
		}

		d, err := m.OpenDir("/many")
		require.NoError(t, err)
		defer d.Close()

		seen := map[string]bool{}
		buf := make([]byte, 256)
		for {
			n, err := d.ReadDirNames(buf)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			for _, name := range bytes.Split(bytes.TrimSuffix(buf[:n], []byte{0}), []byte{0}) {
				assert.False(t, seen[string(name)], "duplicate %s", name)
				seen[string(name)] = true
			}
		}
		assert.Len(t, seen, 202)
	})

	t.Run("OpenDirOnFile", func(t *testing.T) {
		m := suite.mount(t)
		writeFile(t, m, "/f", []byte("x"))
		_, err := m.OpenDir("/f")
		requireErrno(t, err, unix.ENOTDIR)
	})
}
