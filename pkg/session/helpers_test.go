package session_test

import (
	"bytes"
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
	"github.com/marmos91/cephtool/pkg/remotefs/memory"
	"github.com/marmos91/cephtool/pkg/session"
)

func newMemoryDriver(t *testing.T, opts ...kvfs.Option) *kvfs.Driver {
	t.Helper()
	driver, err := memory.New(context.Background(), opts...)
	require.NoError(t, err)
	return driver
}

// loggedIn returns a session logged in as admin at "/" on driver.
func loggedIn(t *testing.T, driver remotefs.Driver, opts ...session.Option) *session.Session {
	t.Helper()
	s := session.New(driver, opts...)
	require.NoError(t, s.Login(context.Background(), "", "", ""))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newSession is loggedIn over a fresh memory driver.
func newSession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	return loggedIn(t, newMemoryDriver(t), opts...)
}

func requireErrno(t *testing.T, err error, code unix.Errno) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, session.Errno(err), "unexpected error: %v", err)
}

// randomFile writes size pseudo-random bytes to a file in dir.
func randomFile(t *testing.T, dir string, size int) (string, []byte) {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(size), 42))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}
	p := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p, data
}

func requireFileContent(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, len(want), len(got))
	require.True(t, bytes.Equal(want, got), "content mismatch in %s", path)
}

// ============================================================================
// Instrumented driver
// ============================================================================

// spyDriver wraps a driver and counts mutating calls on its mounts. Hooks let
// a test replace individual calls.
type spyDriver struct {
	remotefs.Driver

	mu       sync.Mutex
	makeDirs int
	released int

	openDir func(m remotefs.Mount, p string) (remotefs.Dir, error)
	wrapFile func(f remotefs.File) remotefs.File
}

func (d *spyDriver) Create(id string) (remotefs.Mount, error) {
	m, err := d.Driver.Create(id)
	if err != nil {
		return nil, err
	}
	return &spyMount{baseMount: m, d: d}, nil
}

func (d *spyDriver) MakeDirsCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.makeDirs
}

func (d *spyDriver) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

// baseMount names the embedded Mount so that the field does not shadow the
// interface's Mount method.
type baseMount = remotefs.Mount

type spyMount struct {
	baseMount
	d *spyDriver
}

func (m *spyMount) MakeDirs(p string, mode uint32) error {
	m.d.mu.Lock()
	m.d.makeDirs++
	m.d.mu.Unlock()
	return m.baseMount.MakeDirs(p, mode)
}

func (m *spyMount) Release() error {
	m.d.mu.Lock()
	m.d.released++
	m.d.mu.Unlock()
	return m.baseMount.Release()
}

func (m *spyMount) Open(p string, flags int, mode uint32) (remotefs.File, error) {
	f, err := m.baseMount.Open(p, flags, mode)
	if err != nil || m.d.wrapFile == nil {
		return f, err
	}
	return m.d.wrapFile(f), nil
}

func (m *spyMount) OpenDir(p string) (remotefs.Dir, error) {
	if m.d.openDir != nil {
		return m.d.openDir(m.baseMount, p)
	}
	return m.baseMount.OpenDir(p)
}

// shortReadFile returns at most limit bytes per Pread.
type shortReadFile struct {
	remotefs.File
	limit int
}

func (f *shortReadFile) Pread(b []byte, off int64) (int, error) {
	if len(b) > f.limit {
		b = b[:f.limit]
	}
	return f.File.Pread(b, off)
}

// closeFailDir fails Close with EIO.
type closeFailDir struct {
	remotefs.Dir
}

func (d *closeFailDir) Close() error {
	_ = d.Dir.Close()
	return remotefs.PathErr("closedir", "", unix.EIO)
}

// rangeDir reports ERANGE for every batched read.
type rangeDir struct {
	remotefs.Dir
	calls []int
}

func (d *rangeDir) ReadDirNames(buf []byte) (int, error) {
	d.calls = append(d.calls, len(buf))
	return 0, remotefs.PathErr("getdnames", "", unix.ERANGE)
}

// ============================================================================
// Recording metrics
// ============================================================================

type recordingMetrics struct {
	mu          sync.Mutex
	ops         map[string]int
	failed      map[string]int
	written     int64
	read        int64
	shortWrites int
	grows       []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]int{}, failed: map[string]int{}}
}

func (r *recordingMetrics) RecordOperation(op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
	if err != nil {
		r.failed[op]++
	}
}

func (r *recordingMetrics) RecordBytesTransferred(direction string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if direction == "write" {
		r.written += n
	} else {
		r.read += n
	}
}

func (r *recordingMetrics) RecordShortWrite() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shortWrites++
}

func (r *recordingMetrics) RecordBufferGrow(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grows = append(r.grows, size)
}
