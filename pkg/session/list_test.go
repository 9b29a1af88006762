package session_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
	"github.com/marmos91/cephtool/pkg/session"
)

func fillDir(t *testing.T, s *session.Session, dir string, n int) []string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Mkdir(ctx, dir))

	names := make([]string, 0, n)
	for i := range n {
		name := fmt.Sprintf("entry-%04d", i)
		if i%10 == 0 {
			require.NoError(t, s.Mkdir(ctx, session.JoinPath(dir, name)))
		} else {
			require.NoError(t, s.WriteString(ctx, session.JoinPath(dir, name), name))
		}
		names = append(names, name)
	}
	return names
}

func requireSameNames(t *testing.T, want, got []string) {
	t.Helper()
	require.Len(t, got, len(want))

	seen := make(map[string]bool, len(got))
	for _, name := range got {
		require.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
	}
	require.ElementsMatch(t, want, got)
}

func TestListingCompleteness(t *testing.T) {
	for _, n := range []int{0, 4, 1000} {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			ctx := context.Background()
			rec := newRecordingMetrics()
			s := newSession(t, session.WithMetrics(rec))
			want := fillDir(t, s, "/list", n)

			got, err := s.ListDir(ctx, "/list")
			require.NoError(t, err)
			requireSameNames(t, want, got)

			got, err = s.ListDirBuffered(ctx, "/list")
			require.NoError(t, err)
			requireSameNames(t, want, got)
			assert.Empty(t, rec.grows, "short names never outgrow the initial buffer")
		})
	}
}

func TestListDirBufferedGrowsBuffer(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingMetrics()
	s := newSession(t, session.WithMetrics(rec))

	long := strings.Repeat("n", 1500)
	require.NoError(t, s.WriteString(ctx, "/dir/short", "s"))
	require.NoError(t, s.WriteString(ctx, "/dir/"+long, "l"))

	got, err := s.ListDirBuffered(ctx, "/dir")
	require.NoError(t, err)
	requireSameNames(t, []string{long, "short"}, got)
	assert.Equal(t, []int{1024, 2048}, rec.grows)
}

func TestListDirBufferedLimit(t *testing.T) {
	ctx := context.Background()
	var stuck *rangeDir
	spy := &spyDriver{
		Driver: newMemoryDriver(t),
		openDir: func(m remotefs.Mount, p string) (remotefs.Dir, error) {
			d, err := m.OpenDir(p)
			if err != nil {
				return nil, err
			}
			stuck = &rangeDir{Dir: d}
			return stuck, nil
		},
	}
	s := loggedIn(t, spy)

	_, err := s.ListDirBuffered(ctx, "/")
	require.ErrorIs(t, err, session.ErrBufferLimit)
	assert.Equal(t, unix.ERANGE, session.Errno(err))

	require.NotNil(t, stuck)
	assert.Equal(t, session.InitialNameBuffer, stuck.calls[0])
	assert.Equal(t, session.MaxNameBuffer, stuck.calls[len(stuck.calls)-1])
	assert.Len(t, stuck.calls, 12, "512 B doubled up to 1 MiB")
}

func TestListingReportsCloseFailure(t *testing.T) {
	ctx := context.Background()
	failClose := true
	spy := &spyDriver{
		Driver: newMemoryDriver(t),
		openDir: func(m remotefs.Mount, p string) (remotefs.Dir, error) {
			d, err := m.OpenDir(p)
			if err != nil || !failClose {
				return d, err
			}
			return &closeFailDir{Dir: d}, nil
		},
	}
	s := loggedIn(t, spy)
	failClose = false
	fillDir(t, s, "/d", 4)
	failClose = true

	_, err := s.ListDir(ctx, "/d")
	requireErrno(t, err, unix.EIO)

	_, err = s.ListDirBuffered(ctx, "/d")
	requireErrno(t, err, unix.EIO)

	// An early break does not surface the close error
	for _, err := range s.DirNames(ctx, "/d") {
		require.NoError(t, err)
		break
	}
}

func TestDirNamesIsLazyAndRestartable(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	want := fillDir(t, s, "/lazy", 50)

	seq := s.DirNames(ctx, "/lazy")

	var first []string
	for name, err := range seq {
		require.NoError(t, err)
		first = append(first, name)
		if len(first) == 3 {
			break
		}
	}
	assert.Len(t, first, 3)

	var all []string
	for name, err := range seq {
		require.NoError(t, err)
		all = append(all, name)
	}
	requireSameNames(t, want, all)
	assert.Equal(t, first, all[:3], "each pass restarts from the beginning")
}

func TestListingErrors(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	require.NoError(t, s.WriteString(ctx, "/file", "x"))

	_, err := s.ListDir(ctx, "/missing")
	requireErrno(t, err, unix.ENOENT)
	_, err = s.ListDirBuffered(ctx, "/missing")
	requireErrno(t, err, unix.ENOENT)

	_, err = s.ListDir(ctx, "/file")
	requireErrno(t, err, unix.ENOTDIR)
	_, err = s.ListDirBuffered(ctx, "/file")
	requireErrno(t, err, unix.ENOTDIR)

	unmounted := session.New(newMemoryDriver(t))
	_, err = unmounted.ListDir(ctx, "/")
	assert.ErrorIs(t, err, session.ErrNotMounted)
	_, err = unmounted.ListDirBuffered(ctx, "/")
	assert.ErrorIs(t, err, session.ErrNotMounted)
}

func TestListRelativeToWorkingDirectory(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	want := fillDir(t, s, "/cwd", 4)

	require.NoError(t, s.Chdir(ctx, "/cwd"))
	got, err := s.ListDirBuffered(ctx, ".")
	require.NoError(t, err)
	requireSameNames(t, want, got)
}
