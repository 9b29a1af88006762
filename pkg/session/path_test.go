package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/session"
)

func TestParent(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"//", "/"},
		{"/a", "/"},
		{"/a/", "/"},
		{"/a/b", "/a"},
		{"/a/b/", "/a"},
		{"/a/b//", "/a"},
		{"/a//b", "/a"},
		{"//a", "/"},
		{"a", "."},
		{"a/", "."},
		{"a/b", "a"},
		{"./a", "."},
		{"../a/b", "../a"},
		{"", "."},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, session.Parent(tt.path))
		})
	}

	assert.Equal(t, "/", session.Parent(session.Parent("/")))
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/a/b", session.JoinPath("/a", "b"))
	assert.Equal(t, "/a/b", session.JoinPath("/a/", "b"))
	assert.Equal(t, "/a/b", session.JoinPath("/a//", "/b"))
	assert.Equal(t, "/b", session.JoinPath("/", "b"))
	assert.Equal(t, "b", session.JoinPath("", "b"))
	assert.Equal(t, "./b", session.JoinPath(".", "b"))
}

func TestEnsureParentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	spy := &spyDriver{Driver: newMemoryDriver(t)}
	s := loggedIn(t, spy)

	require.NoError(t, s.EnsureParent(ctx, "/a/b/c/file"))
	assert.Equal(t, 1, spy.MakeDirsCalls())
	assert.Equal(t, session.KindDirectory, s.Stat(ctx, "/a/b/c"))
	assert.Equal(t, session.KindNotFound, s.Stat(ctx, "/a/b/c/file"))

	// The second call hits EEXIST, which is success and changes nothing.
	require.NoError(t, s.EnsureParent(ctx, "/a/b/c/file"))
	assert.Equal(t, 2, spy.MakeDirsCalls())
	names, err := s.ListDir(ctx, "/a/b/c")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEnsureParentAtRootMakesNoCall(t *testing.T) {
	ctx := context.Background()
	spy := &spyDriver{Driver: newMemoryDriver(t)}
	s := loggedIn(t, spy)

	for _, p := range []string{"/file", "file", "/", "./"} {
		require.NoError(t, s.EnsureParent(ctx, p), p)
	}
	assert.Zero(t, spy.MakeDirsCalls())
}

func TestEnsureParentTrailingSlashCreatesPath(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)

	require.NoError(t, s.EnsureParent(ctx, "/x/y/"))
	assert.Equal(t, session.KindDirectory, s.Stat(ctx, "/x/y"))
}

func TestEnsureParentThroughFile(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)

	require.NoError(t, s.WriteString(ctx, "/blocker", "x"))
	requireErrno(t, s.EnsureParent(ctx, "/blocker/child/file"), unix.ENOTDIR)
}

func TestMkdir(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)

	require.NoError(t, s.Mkdir(ctx, "/deep/nested/dir"))
	require.NoError(t, s.Mkdir(ctx, "/deep/nested/dir/"))
	assert.Equal(t, session.KindDirectory, s.Stat(ctx, "/deep/nested/dir"))

	require.NoError(t, s.Mkdir(ctx, "relative"))
	assert.Equal(t, session.KindDirectory, s.Stat(ctx, "/relative"))

	assert.ErrorIs(t, s.Mkdir(ctx, ""), session.ErrInvalidArgument)
}

func TestPathOperationsRequireMount(t *testing.T) {
	ctx := context.Background()
	s := session.New(newMemoryDriver(t))

	assert.ErrorIs(t, s.EnsureParent(ctx, "/a/b"), session.ErrNotMounted)
	assert.ErrorIs(t, s.Mkdir(ctx, "/a"), session.ErrNotMounted)
}
