package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// RunLifecycleTests covers create, configure, mount, unmount and release.
func (suite *DriverTestSuite) RunLifecycleTests(t *testing.T) {
	t.Run("CreateIsUnmounted", func(t *testing.T) {
		m, err := suite.NewDriver(t).Create("admin")
		require.NoError(t, err)
		assert.False(t, m.IsMounted())

		_, err = m.Statx("/")
		requireErrno(t, err, unix.ENOTCONN)
		require.NoError(t, m.Release())
	})

	t.Run("ConfigOptionsBeforeMount", func(t *testing.T) {
		m, err := suite.NewDriver(t).Create("admin")
		require.NoError(t, err)
		require.NoError(t, m.SetConfigOption("mon host", "10.0.0.1:6789"))
		require.NoError(t, m.Mount(testContext(), "/"))
		assert.True(t, m.IsMounted())
		require.NoError(t, m.Unmount())
		require.NoError(t, m.Release())
	})

	t.Run("MountMissingRoot", func(t *testing.T) {
		m, err := suite.NewDriver(t).Create("admin")
		require.NoError(t, err)
		requireErrno(t, m.Mount(testContext(), "/does/not/exist"), unix.ENOENT)
		assert.False(t, m.IsMounted())
		require.NoError(t, m.Release())
	})

	t.Run("MountSubdirectoryRoot", func(t *testing.T) {
		driver := suite.NewDriver(t)

		setup, err := driver.Create("admin")
		require.NoError(t, err)
		require.NoError(t, setup.Mount(testContext(), "/"))
		require.NoError(t, setup.MakeDirs("/volumes/a", 0o755))
		writeFile(t, setup, "/volumes/a/f", []byte("inside"))
		require.NoError(t, setup.Unmount())
		require.NoError(t, setup.Release())

		m, err := driver.Create("admin")
		require.NoError(t, err)
		require.NoError(t, m.Mount(testContext(), "/volumes/a"))
		defer func() {
			_ = m.Unmount()
			_ = m.Release()
		}()

		assert.Equal(t, []byte("inside"), readFile(t, m, "/f"))
		// ".." cannot climb out of the mount root.
		assert.Equal(t, []byte("inside"), readFile(t, m, "/../../f"))
	})

	t.Run("ReleaseWhileMounted", func(t *testing.T) {
		m := suite.mount(t)
		requireErrno(t, m.Release(), unix.EISCONN)
	})

	t.Run("UnmountTwice", func(t *testing.T) {
		m := suite.mount(t)
		require.NoError(t, m.Unmount())
		requireErrno(t, m.Unmount(), unix.ENOTCONN)
	})
}
