package session

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Upload copies each local source to the remote destination dst.
//
// A file goes to dst, or to dst/<basename> when dst ends in "/" (or is "."
// or ".."). A directory is mirrored to dst/<basename>; uploading a directory
// onto an existing remote file fails with ENOTDIR. Missing local sources are
// skipped and reported together once the others are done; any other failure
// stops the upload.
func (s *Session) Upload(ctx context.Context, dst string, srcs ...string) error {
	const op = "upload"

	if dst == "" || len(srcs) == 0 {
		return s.fail(op, dst, ErrInvalidArgument)
	}

	var missing []error
	for _, src := range srcs {
		info, err := os.Stat(src)
		if errors.Is(err, os.ErrNotExist) {
			missing = append(missing, s.fail(op, src, err))
			continue
		}
		if err != nil {
			return s.fail(op, src, err)
		}

		target, err := s.UploadTarget(ctx, dst, src, info.IsDir())
		if err != nil {
			return err
		}
		if err := s.MirrorTree(ctx, target, src); err != nil {
			return err
		}
		s.log.Info("uploaded", zap.String("src", src), zap.String("dst", target))
	}
	return errors.Join(missing...)
}

// UploadTarget computes the remote path a local source lands on.
func (s *Session) UploadTarget(ctx context.Context, dst, src string, isDir bool) (string, error) {
	if !isDir {
		if dst == "." || dst == ".." {
			dst += "/"
		}
		if strings.HasSuffix(dst, "/") {
			dst += filepath.Base(src)
		}
		return dst, nil
	}

	if s.Stat(ctx, dst) == KindFile {
		return "", s.fail("upload", dst, unix.ENOTDIR)
	}
	return JoinPath(dst, filepath.Base(src)) + "/", nil
}

// Download copies each remote file in srcs to the local path dst. When dst
// is an existing local directory the file keeps its name inside it. Remote
// directories are rejected with EISDIR.
func (s *Session) Download(ctx context.Context, dst string, srcs ...string) error {
	const op = "download"

	if dst == "" || len(srcs) == 0 {
		return s.fail(op, dst, ErrInvalidArgument)
	}
	if parent := filepath.Dir(dst); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return s.fail(op, parent, err)
		}
	}

	for _, src := range srcs {
		switch s.Stat(ctx, src) {
		case KindNotFound:
			if !s.IsMounted() {
				return s.fail(op, src, ErrNotMounted)
			}
			return s.fail(op, src, unix.ENOENT)
		case KindDirectory:
			return s.fail(op, src, unix.EISDIR)
		}

		target := dst
		if info, err := os.Stat(dst); err == nil && info.IsDir() {
			target = filepath.Join(dst, path.Base(src))
		}
		if err := s.CopyFromRemote(ctx, src, target); err != nil {
			return err
		}
		s.log.Info("downloaded", zap.String("src", src), zap.String("dst", target))
	}
	return nil
}

// RemoveAny removes p whether it is a file or a directory tree.
func (s *Session) RemoveAny(ctx context.Context, p string) error {
	switch s.Stat(ctx, p) {
	case KindDirectory:
		return s.RemoveTree(ctx, p)
	case KindNotFound:
		if !s.IsMounted() {
			return s.fail("remove", p, ErrNotMounted)
		}
		return s.fail("remove", p, unix.ENOENT)
	default:
		return s.Remove(ctx, p)
	}
}
