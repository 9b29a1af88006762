package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
	"github.com/marmos91/cephtool/pkg/session"
)

func TestLoginDefaults(t *testing.T) {
	s := newSession(t)

	assert.True(t, s.IsMounted())
	assert.Equal(t, session.DefaultUser, s.User())
	assert.Equal(t, session.DefaultRoot, s.Root())
}

func TestLoginSubdirectoryRoot(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryDriver(t)

	setup := loggedIn(t, driver)
	require.NoError(t, setup.WriteString(ctx, "/volumes/alice/hello", "hi"))

	s := session.New(driver)
	defer s.Close()
	require.NoError(t, s.Login(ctx, "alice", "", "/volumes/alice"))
	assert.Equal(t, "alice", s.User())
	assert.Equal(t, "/volumes/alice", s.Root())

	got, err := s.ReadString(ctx, "/hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestFailedLoginKeepsHandleUnmounted(t *testing.T) {
	ctx := context.Background()
	spy := &spyDriver{Driver: newMemoryDriver(t)}
	s := session.New(spy)

	err := s.Login(ctx, "admin", "", "/missing/root")
	requireErrno(t, err, unix.ENOENT)
	assert.False(t, s.IsMounted())
	assert.Empty(t, s.User())
	assert.Zero(t, spy.Releases(), "handle must survive a failed login")

	err = s.WriteString(ctx, "/f", "data")
	require.ErrorIs(t, err, session.ErrNotMounted)
	assert.Equal(t, unix.ENOTCONN, session.Errno(err))

	require.NoError(t, s.Shutdown())
	assert.Equal(t, 1, spy.Releases())
}

func TestLoginReleasesPreviousHandle(t *testing.T) {
	ctx := context.Background()
	spy := &spyDriver{Driver: newMemoryDriver(t)}
	s := session.New(spy)

	require.NoError(t, s.Login(ctx, "", "", ""))
	require.NoError(t, s.Login(ctx, "", "", ""))
	assert.Equal(t, 1, spy.Releases())

	require.NoError(t, s.Close())
	assert.Equal(t, 2, spy.Releases())
}

func TestShutdownIsIdempotent(t *testing.T) {
	spy := &spyDriver{Driver: newMemoryDriver(t)}
	s := session.New(spy)

	require.NoError(t, s.Shutdown(), "shutdown before login")
	require.NoError(t, s.Login(context.Background(), "", "", ""))

	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, spy.Releases())
	assert.False(t, s.IsMounted())

	_, err := s.Getcwd(context.Background())
	require.ErrorIs(t, err, session.ErrNotMounted)
}

func TestSettersRejectEmpty(t *testing.T) {
	s := session.New(newMemoryDriver(t))

	for name, err := range map[string]error{
		"config file": s.SetConfigFile(""),
		"monitor":     s.SetMonitorAddress(""),
		"key":         s.SetUserKey(""),
		"keyfile":     s.SetUserKeyFile(""),
	} {
		assert.ErrorIs(t, err, session.ErrInvalidArgument, name)
	}
	assert.Nil(t, s.Target())
}

func TestTargetsAreMutuallyExclusive(t *testing.T) {
	s := session.New(newMemoryDriver(t))

	require.NoError(t, s.SetUserKey("inline"))
	require.NoError(t, s.SetUserKeyFile("/etc/ceph/admin.key"))
	require.NoError(t, s.SetConfigFile("/etc/ceph/ceph.conf"))
	assert.Equal(t, session.ConfigFileTarget{Path: "/etc/ceph/ceph.conf"}, s.Target())
	assert.Empty(t, s.Credentials().Key, "target change clears the inline key")
	assert.Equal(t, "/etc/ceph/admin.key", s.Credentials().KeyFile)

	require.NoError(t, s.SetUserKey("inline"))
	require.NoError(t, s.SetMonitorAddress("10.0.0.1:6789"))
	assert.Equal(t, session.MonitorTarget{Addr: "10.0.0.1:6789"}, s.Target())
	assert.Empty(t, s.Credentials().Key)
}

func TestCredentialsSecretPriority(t *testing.T) {
	assert.Equal(t, session.InlineKey("k"), session.Credentials{Key: "k", KeyFile: "f"}.Secret())
	assert.Equal(t, session.KeyFile("f"), session.Credentials{KeyFile: "f"}.Secret())
	assert.Equal(t, session.NoSecret{}, session.Credentials{}.Secret())
}

func TestLoginWithSecrets(t *testing.T) {
	ctx := context.Background()
	driver := newMemoryDriver(t, kvfs.WithKeyring(map[string]string{"admin": "s3cr3t"}))
	dir := t.TempDir()

	t.Run("NoSecretIsRejected", func(t *testing.T) {
		s := session.New(driver)
		defer s.Close()
		requireErrno(t, s.Login(ctx, "", "", ""), unix.EACCES)
	})

	t.Run("LoginArgumentOverridesStoredKey", func(t *testing.T) {
		s := session.New(driver, session.WithCredentials(session.Credentials{Key: "stale"}))
		defer s.Close()
		require.NoError(t, s.Login(ctx, "admin", "s3cr3t", "/"))
		assert.Equal(t, "s3cr3t", s.Credentials().Key)
	})

	t.Run("InlineKeyWinsOverKeyFile", func(t *testing.T) {
		s := session.New(driver)
		defer s.Close()
		require.NoError(t, s.SetUserKeyFile(filepath.Join(dir, "missing.key")))
		require.NoError(t, s.SetUserKey("s3cr3t"))
		require.NoError(t, s.Login(ctx, "", "", ""))
	})

	t.Run("KeyFile", func(t *testing.T) {
		keyfile := filepath.Join(dir, "admin.key")
		require.NoError(t, os.WriteFile(keyfile, []byte("s3cr3t\n"), 0o600))

		s := session.New(driver)
		defer s.Close()
		require.NoError(t, s.SetUserKeyFile(keyfile))
		require.NoError(t, s.Login(ctx, "", "", ""))
	})

	t.Run("ConfigFileEmbedsKey", func(t *testing.T) {
		conf := filepath.Join(dir, "ceph.conf")
		require.NoError(t, os.WriteFile(conf,
			[]byte("[global]\nmon host = 10.0.0.1\n\n[client.admin]\nkey = s3cr3t\n"), 0o644))

		s := session.New(driver)
		defer s.Close()
		require.NoError(t, s.SetConfigFile(conf))
		require.NoError(t, s.Login(ctx, "", "", ""))
	})

	t.Run("MissingConfigFile", func(t *testing.T) {
		s := session.New(driver, session.WithTarget(session.ConfigFileTarget{Path: filepath.Join(dir, "none.conf")}))
		defer s.Close()
		requireErrno(t, s.Login(ctx, "", "s3cr3t", ""), unix.ENOENT)
	})
}

func TestFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := newSession(t, session.WithLogger(zap.New(core)))

	_, err := s.ReadString(context.Background(), "/missing")
	requireErrno(t, err, unix.ENOENT)

	entries := logs.FilterMessage("operation failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "read", fields["op"])
	assert.Equal(t, "/missing", fields["path"])
	assert.Equal(t, int64(unix.ENOENT), fields["errno"])
	assert.Equal(t, "memory", fields["driver"])
	assert.Equal(t, s.ID().String(), fields["session"])
}

func TestSessionsHaveDistinctIDs(t *testing.T) {
	a, b := newSession(t), newSession(t)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestErrorFormatting(t *testing.T) {
	s := newSession(t)
	err := s.Remove(context.Background(), "/nope")

	var se *session.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "remove", se.Op)
	assert.Equal(t, "/nope", se.Path)
	assert.Contains(t, err.Error(), "remove /nope")
	assert.Equal(t, unix.ENOENT, se.Errno())
}
