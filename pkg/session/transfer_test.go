package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/session"
)

func TestUploadFile(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	root := localTree(t, map[string]string{"report.csv": "a,b"})
	src := filepath.Join(root, "report.csv")

	require.NoError(t, s.Upload(ctx, "/exact-name.csv", src))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/exact-name.csv"))

	require.NoError(t, s.Upload(ctx, "/reports/", src))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/reports/report.csv"))

	require.NoError(t, s.Mkdir(ctx, "/here"))
	require.NoError(t, s.Chdir(ctx, "/here"))
	require.NoError(t, s.Upload(ctx, ".", src))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/here/report.csv"))
}

func TestUploadDirectory(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	root := localTree(t, map[string]string{"project/main.go": "package main", "project/doc/README": "hi"})
	src := filepath.Join(root, "project")

	require.NoError(t, s.Upload(ctx, "/code", src))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/code/project/main.go"))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/code/project/doc/README"))

	require.NoError(t, s.Upload(ctx, "/code2", src+"/"))
	assert.Equal(t, session.KindFile, s.Stat(ctx, "/code2/project/main.go"))
}

func TestUploadDirectoryOntoFile(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	root := localTree(t, map[string]string{"dir/f": "x"})

	require.NoError(t, s.WriteString(ctx, "/taken", "file"))
	requireErrno(t, s.Upload(ctx, "/taken", filepath.Join(root, "dir")), unix.ENOTDIR)
}

func TestUploadSkipsMissingSources(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	root := localTree(t, map[string]string{"ok.txt": "ok"})

	err := s.Upload(ctx, "/dst/", filepath.Join(root, "missing.txt"), filepath.Join(root, "ok.txt"))
	requireErrno(t, err, unix.ENOENT)
	assert.True(t, s.Exists(ctx, "/dst/ok.txt"), "present sources are still uploaded")
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	require.NoError(t, s.WriteString(ctx, "/remote/file.txt", "payload"))
	dir := t.TempDir()

	t.Run("ToExplicitPath", func(t *testing.T) {
		dst := filepath.Join(dir, "new", "parents", "copy.txt")
		require.NoError(t, s.Download(ctx, dst, "/remote/file.txt"))
		requireFileContent(t, dst, []byte("payload"))
	})

	t.Run("IntoLocalDirectory", func(t *testing.T) {
		require.NoError(t, s.Download(ctx, dir, "/remote/file.txt"))
		requireFileContent(t, filepath.Join(dir, "file.txt"), []byte("payload"))
	})

	t.Run("RemoteDirectoryRejected", func(t *testing.T) {
		requireErrno(t, s.Download(ctx, dir, "/remote"), unix.EISDIR)
	})

	t.Run("MissingRemote", func(t *testing.T) {
		dst := filepath.Join(dir, "never")
		requireErrno(t, s.Download(ctx, dst, "/remote/missing"), unix.ENOENT)
		_, err := os.Stat(dst)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestRemoveAny(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)

	require.NoError(t, s.WriteString(ctx, "/file", "x"))
	require.NoError(t, s.WriteString(ctx, "/tree/a/b", "x"))

	require.NoError(t, s.RemoveAny(ctx, "/file"))
	require.NoError(t, s.RemoveAny(ctx, "/tree"))
	assert.False(t, s.Exists(ctx, "/file"))
	assert.False(t, s.Exists(ctx, "/tree"))

	requireErrno(t, s.RemoveAny(ctx, "/file"), unix.ENOENT)

	unmounted := session.New(newMemoryDriver(t))
	assert.ErrorIs(t, unmounted.RemoveAny(ctx, "/file"), session.ErrNotMounted)
}
