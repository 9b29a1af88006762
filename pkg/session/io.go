package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

const (
	// ChunkSize is the unit of the chunked copy in both directions.
	ChunkSize = 1 << 20

	// DefaultReadCapacity is the buffer ReadString reads into.
	DefaultReadCapacity = 1024
)

// WriteBytes replaces the remote file p with data using a single write.
//
// Missing parent directories are created. A write that transfers fewer
// bytes than len(data) fails with ErrShortTransfer; use CopyToRemote for
// payloads that may not fit in one call.
func (s *Session) WriteBytes(ctx context.Context, p string, data []byte) (err error) {
	const op = "write"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" || len(data) == 0 {
		return s.fail(op, p, ErrInvalidArgument)
	}
	if err := s.ensureParent(m, op, p); err != nil {
		return err
	}

	f, err := m.Open(p, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	if err != nil {
		return s.fail(op, p, err)
	}
	defer s.closeInto(op, p, f, &err)

	if err := s.throttle(ctx, len(data)); err != nil {
		return s.fail(op, p, err)
	}
	n, err := f.Pwrite(data, 0)
	if err != nil {
		return s.fail(op, p, err)
	}
	s.metrics.RecordBytesTransferred("write", int64(n))
	if n != len(data) {
		return s.fail(op, p, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortTransfer, n, len(data)))
	}
	return nil
}

// WriteString is WriteBytes for a string.
func (s *Session) WriteString(ctx context.Context, p, content string) error {
	return s.WriteBytes(ctx, p, []byte(content))
}

// ReadBytes reads up to capacity bytes from the start of p with a single
// read. Fewer bytes than capacity is not an error.
func (s *Session) ReadBytes(ctx context.Context, p string, capacity int) (data []byte, err error) {
	const op = "read"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	if p == "" || capacity <= 0 {
		return nil, s.fail(op, p, ErrInvalidArgument)
	}

	f, err := m.Open(p, unix.O_RDONLY, 0)
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	defer s.closeInto(op, p, f, &err)

	buf := make([]byte, capacity)
	n, err := f.Pread(buf, 0)
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	s.metrics.RecordBytesTransferred("read", int64(n))
	return buf[:n], nil
}

// ReadString reads up to DefaultReadCapacity bytes of p.
func (s *Session) ReadString(ctx context.Context, p string) (string, error) {
	data, err := s.ReadBytes(ctx, p, DefaultReadCapacity)
	return string(data), err
}

// CopyToRemote streams the local file localPath into the remote file p in
// ChunkSize pieces. Short writes are retried at the advanced offset.
func (s *Session) CopyToRemote(ctx context.Context, p, localPath string) (err error) {
	const op = "copy_to_remote"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" || localPath == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}
	return s.copyToRemote(ctx, m, op, p, localPath)
}

func (s *Session) copyToRemote(ctx context.Context, m remotefs.Mount, op, p, localPath string) (err error) {
	src, err := os.Open(localPath)
	if err != nil {
		return s.fail(op, localPath, err)
	}
	defer src.Close()

	if err := s.ensureParent(m, op, p); err != nil {
		return err
	}
	f, err := m.Open(p, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
	if err != nil {
		return s.fail(op, p, err)
	}
	defer s.closeInto(op, p, f, &err)

	buf := make([]byte, ChunkSize)
	var off int64
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(op, p, err)
		}

		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			if err := s.throttle(ctx, n); err != nil {
				return s.fail(op, p, err)
			}
			if err := s.writeFull(f, p, buf[:n], off); err != nil {
				return s.fail(op, p, err)
			}
			off += int64(n)
		}

		switch {
		case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
			return nil
		case rerr != nil:
			return s.fail(op, localPath, rerr)
		}
	}
}

// writeFull writes chunk at off, retrying the remainder after short writes.
func (s *Session) writeFull(f remotefs.File, p string, chunk []byte, off int64) error {
	for len(chunk) > 0 {
		n, err := f.Pwrite(chunk, off)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("%w: no progress at offset %d", ErrShortTransfer, off)
		}
		s.metrics.RecordBytesTransferred("write", int64(n))

		if n < len(chunk) {
			s.metrics.RecordShortWrite()
			s.log.Warn("short write, retrying remainder",
				zap.String("path", p),
				zap.Int64("offset", off),
				zap.Int("written", n),
				zap.Int("requested", len(chunk)))
		}
		chunk = chunk[n:]
		off += int64(n)
	}
	return nil
}

// CopyFromRemote streams the remote file p into localPath in ChunkSize
// pieces. A read shorter than a chunk marks the end of the file.
//
// The local file is only created once the remote file is known to exist.
func (s *Session) CopyFromRemote(ctx context.Context, p, localPath string) (err error) {
	const op = "copy_from_remote"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return s.fail(op, p, err)
	}
	if p == "" || localPath == "" {
		return s.fail(op, p, ErrInvalidArgument)
	}

	st, err := m.Statx(p)
	if err != nil {
		return s.fail(op, p, err)
	}
	if st.IsDir() {
		return s.fail(op, p, unix.EISDIR)
	}

	f, err := m.Open(p, unix.O_RDONLY, 0)
	if err != nil {
		return s.fail(op, p, err)
	}
	defer s.closeInto(op, p, f, &err)

	dst, err := os.Create(localPath)
	if err != nil {
		return s.fail(op, localPath, err)
	}
	defer s.closeInto(op, localPath, dst, &err)

	buf := make([]byte, ChunkSize)
	var off int64
	for {
		if err := ctx.Err(); err != nil {
			return s.fail(op, p, err)
		}

		n, err := f.Pread(buf, off)
		if err != nil {
			return s.fail(op, p, err)
		}
		if n > 0 {
			if err := s.throttle(ctx, n); err != nil {
				return s.fail(op, p, err)
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return s.fail(op, localPath, err)
			}
			s.metrics.RecordBytesTransferred("read", int64(n))
		}
		if n < len(buf) {
			return nil
		}
		off += int64(n)
	}
}

// closeInto closes c and reports a close failure through errp when the
// operation had otherwise succeeded.
func (s *Session) closeInto(op, p string, c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = s.fail(op, p, cerr)
	}
}

func (s *Session) throttle(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.WaitN(ctx, n)
}
