package session

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Kind classifies a remote path for Stat.
type Kind int

const (
	KindNotFound Kind = iota
	KindFile
	KindDirectory
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindOther:
		return "other"
	default:
		return "not found"
	}
}

// Remove unlinks the remote file p.
func (s *Session) Remove(ctx context.Context, p string) (err error) {
	const op = "remove"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	if err := m.Unlink(p); err != nil {
		return s.fail(op, p, err)
	}
	return nil
}

// RemoveDir removes the empty remote directory p.
func (s *Session) RemoveDir(ctx context.Context, p string) (err error) {
	const op = "rmdir"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	if err := m.RemoveDir(p); err != nil {
		return s.fail(op, p, err)
	}
	return nil
}

// Exists reports whether p can be stat'ed. It is false on an unmounted
// session.
func (s *Session) Exists(ctx context.Context, p string) bool {
	m, err := s.mount()
	if err != nil || p == "" {
		return false
	}
	_, err = m.Statx(p)
	return err == nil
}

// Length returns the size of p in bytes.
func (s *Session) Length(ctx context.Context, p string) (size int64, err error) {
	const op = "length"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return 0, s.fail(op, p, err)
	}
	if p == "" {
		return 0, s.fail(op, p, ErrInvalidArgument)
	}
	st, err := m.Statx(p)
	if err != nil {
		return 0, s.fail(op, p, err)
	}
	return int64(st.Size), nil
}

// Stat classifies p. Any failure, including a missing path, is reported as
// KindNotFound; failures other than ENOENT are logged.
func (s *Session) Stat(ctx context.Context, p string) Kind {
	const op = "stat"

	m, err := s.mount()
	if err != nil {
		_ = s.fail(op, p, err)
		return KindNotFound
	}
	if p == "" {
		return KindNotFound
	}

	st, err := m.Statx(p)
	switch {
	case remotefs.IsErrno(err, unix.ENOENT):
		return KindNotFound
	case err != nil:
		_ = s.fail(op, p, err)
		return KindNotFound
	case st.IsRegular():
		return KindFile
	case st.IsDir():
		return KindDirectory
	default:
		return KindOther
	}
}

// Rename moves src to dst, creating the parents of dst first. An existing
// file at dst is replaced.
func (s *Session) Rename(ctx context.Context, src, dst string) (err error) {
	const op = "rename"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, src, err)
	}
	if src == "" || dst == "" {
		return s.fail(op, src, ErrInvalidArgument)
	}
	if err := s.ensureParent(m, op, dst); err != nil {
		return err
	}
	if err := m.Rename(src, dst); err != nil {
		return s.fail(op, src+" -> "+dst, err)
	}
	return nil
}

// Chdir changes the working directory that relative paths resolve against.
func (s *Session) Chdir(ctx context.Context, p string) (err error) {
	const op = "chdir"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	if err := m.ChangeDir(p); err != nil {
		return s.fail(op, p, err)
	}
	return nil
}

// Getcwd returns the working directory, relative to the mount root.
func (s *Session) Getcwd(ctx context.Context) (string, error) {
	m, err := s.mount()
	if err != nil {
		return "", s.fail("getcwd", "", err)
	}
	return m.CurrentDir(), nil
}
