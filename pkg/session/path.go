package session

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// Parent returns the directory containing p.
//
// Trailing slashes are ignored. The parent of a root-level entry (and of
// "/" itself) is "/"; the parent of a single relative component is ".".
// Unlike path.Dir, "." and ".." components are left for the remote side to
// resolve.
func Parent(p string) string {
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		if strings.HasPrefix(p, "/") {
			return "/"
		}
		return "."
	}

	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return "."
	}
	if parent := strings.TrimRight(trimmed[:i], "/"); parent != "" {
		return parent
	}
	return "/"
}

// JoinPath joins two remote path fragments with exactly one slash.
func JoinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimRight(dir, "/") + "/" + strings.TrimLeft(name, "/")
}

// EnsureParent creates the directory chain above p. A p ending in "/" names
// a directory, which is created itself.
//
// Existing directories are not an error, so calling it repeatedly is safe.
func (s *Session) EnsureParent(ctx context.Context, p string) (err error) {
	const op = "ensure_parent"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	return s.ensureParent(m, op, p)
}

// Mkdir creates p and any missing parents.
func (s *Session) Mkdir(ctx context.Context, p string) (err error) {
	const op = "mkdir"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return s.ensureParent(m, op, p)
}

func (s *Session) ensureParent(m remotefs.Mount, op, p string) error {
	var dir string
	if strings.HasSuffix(p, "/") {
		if dir = strings.TrimRight(p, "/"); dir == "" {
			dir = "/"
		}
	} else {
		dir = Parent(p)
	}
	if dir == "/" || dir == "." {
		return nil
	}

	err := m.MakeDirs(dir, 0o777)
	if err == nil || remotefs.IsErrno(err, unix.EEXIST) {
		return nil
	}
	return s.fail(op, dir, err)
}
