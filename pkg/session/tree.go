package session

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

// MirrorTree uploads the local file or directory tree at localPath to the
// remote path remotePath.
//
// Directories are created remotely (empty ones included) and entries whose
// name starts with "." are skipped. The walk stops at the first failure and
// does not undo what was already copied.
func (s *Session) MirrorTree(ctx context.Context, remotePath, localPath string) (err error) {
	const op = "mirror_tree"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, remotePath, err)
	}
	if remotePath == "" || localPath == "" {
		return s.fail(op, remotePath, ErrInvalidArgument)
	}
	return s.mirror(ctx, m, remotePath, localPath, 0)
}

func (s *Session) mirror(ctx context.Context, m remotefs.Mount, remotePath, localPath string, depth int) error {
	const op = "mirror_tree"

	if depth > s.maxDepth {
		return s.fail(op, localPath, ErrDepthExceeded)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(op, localPath, err)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return s.fail(op, localPath, err)
	}

	switch {
	case info.Mode().IsRegular():
		return s.copyToRemote(ctx, m, op, remotePath, localPath)

	case info.IsDir():
		if err := s.ensureParent(m, op, strings.TrimRight(remotePath, "/")+"/"); err != nil {
			return err
		}
		entries, err := os.ReadDir(localPath)
		if err != nil {
			return s.fail(op, localPath, err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			err := s.mirror(ctx, m,
				JoinPath(remotePath, e.Name()),
				filepath.Join(localPath, e.Name()),
				depth+1)
			if err != nil {
				return err
			}
		}
		return nil

	default:
		return s.fail(op, localPath, ErrUnsupportedType)
	}
}

// RemoveTree deletes the remote directory p and everything below it,
// depth first. The namespace root is emptied but never removed itself.
//
// The walk stops at the first failure; siblings not yet visited remain.
func (s *Session) RemoveTree(ctx context.Context, p string) (err error) {
	const op = "remove_tree"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	return s.removeTree(ctx, m, p, 0)
}

func (s *Session) removeTree(ctx context.Context, m remotefs.Mount, p string, depth int) error {
	const op = "remove_tree"

	if depth > s.maxDepth {
		return s.fail(op, p, ErrDepthExceeded)
	}
	if err := ctx.Err(); err != nil {
		return s.fail(op, p, err)
	}

	entries, err := s.readDirPlus(m, op, p)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := JoinPath(p, e.Name)
		if e.Type == remotefs.TypeDir {
			if err := s.removeTree(ctx, m, child, depth+1); err != nil {
				return err
			}
			continue
		}
		if err := m.Unlink(child); err != nil {
			return s.fail(op, child, err)
		}
	}

	if isNamespaceRoot(m, p) {
		return nil
	}
	if err := m.RemoveDir(p); err != nil {
		return s.fail(op, p, err)
	}
	return nil
}

// readDirPlus returns the entries of p without "." and "..". The stream is
// closed before returning so that recursion holds one directory open at most.
func (s *Session) readDirPlus(m remotefs.Mount, op, p string) (entries []remotefs.DirEntry, err error) {
	d, err := m.OpenDir(p)
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	defer s.closeInto(op, p, d, &err)

	for {
		e, err := d.ReadDirPlus()
		if err != nil {
			return nil, s.fail(op, p, err)
		}
		if e == nil {
			return entries, nil
		}
		if isPseudoEntry(e.Name) {
			continue
		}
		if e.Type == remotefs.TypeUnknown && e.Statx != nil {
			e.Type = e.Statx.EntryType()
		}
		entries = append(entries, *e)
	}
}

// isNamespaceRoot reports whether p, resolved against the working
// directory, is the mount root.
func isNamespaceRoot(m remotefs.Mount, p string) bool {
	if !path.IsAbs(p) {
		p = path.Join(m.CurrentDir(), p)
	}
	return path.Clean(p) == "/"
}

func isPseudoEntry(name string) bool {
	return name == "." || name == ".."
}
