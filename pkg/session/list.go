package session

import (
	"bytes"
	"context"
	"iter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/remotefs"
)

const (
	// InitialNameBuffer is the first buffer size of the batched protocol.
	InitialNameBuffer = 512

	// MaxNameBuffer caps buffer growth on ERANGE.
	MaxNameBuffer = 1 << 20
)

// ListDir returns the names in directory p, one entry per call to the
// remote, in enumeration order. An error part way through discards the
// partial result.
func (s *Session) ListDir(ctx context.Context, p string) (names []string, err error) {
	const op = "list_dir"
	defer s.observe(op, time.Now(), &err)

	m, err := s.mount()
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	if p == "" {
		return nil, s.fail(op, p, ErrInvalidArgument)
	}

	d, err := m.OpenDir(p)
	if err != nil {
		return nil, s.fail(op, p, err)
	}
	defer s.closeInto(op, p, d, &err)

	names = []string{}
	for {
		e, err := d.ReadDir()
		if err != nil {
			return nil, s.fail(op, p, err)
		}
		if e == nil {
			return names, nil
		}
		if !isPseudoEntry(e.Name) {
			names = append(names, e.Name)
		}
	}
}

// ListDirBuffered returns the names in directory p using batched name
// reads. See DirNames.
func (s *Session) ListDirBuffered(ctx context.Context, p string) (names []string, err error) {
	defer s.observe("list_dir_buffered", time.Now(), &err)

	names = []string{}
	for name, err := range s.DirNames(ctx, p) {
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// DirNames enumerates directory p lazily.
//
// Names are fetched in batches into a buffer that starts at
// InitialNameBuffer bytes and doubles whenever the remote reports that the
// next name does not fit, up to MaxNameBuffer. Every iteration opens the
// directory afresh; breaking out of the loop closes it. A failure, including
// one closing the directory after a complete enumeration, is yielded once as
// the final element.
func (s *Session) DirNames(ctx context.Context, p string) iter.Seq2[string, error] {
	const op = "list_dir_buffered"

	return func(yield func(string, error) bool) {
		m, err := s.mount()
		if err != nil {
			yield("", s.fail(op, p, err))
			return
		}
		if p == "" {
			yield("", s.fail(op, p, ErrInvalidArgument))
			return
		}

		d, err := m.OpenDir(p)
		if err != nil {
			yield("", s.fail(op, p, err))
			return
		}

		done, err := s.readNames(ctx, d, p, yield)
		cerr := d.Close()
		switch {
		case err != nil:
			yield("", s.fail(op, p, err))
		case done && cerr != nil:
			yield("", s.fail(op, p, cerr))
		}
	}
}

// readNames yields the names of d batch by batch. It reports done when the
// directory was read to the end, and false when yield asked to stop.
func (s *Session) readNames(ctx context.Context, d remotefs.Dir, p string, yield func(string, error) bool) (done bool, err error) {
	buf := make([]byte, InitialNameBuffer)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		n, err := d.ReadDirNames(buf)
		if remotefs.IsErrno(err, unix.ERANGE) {
			if len(buf) >= MaxNameBuffer {
				return false, ErrBufferLimit
			}
			buf = make([]byte, min(2*len(buf), MaxNameBuffer))
			s.metrics.RecordBufferGrow(len(buf))
			s.log.Debug("name buffer grown", zap.String("path", p), zap.Int("size", len(buf)))
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return true, nil
		}

		for pos := 0; pos < n; {
			end := bytes.IndexByte(buf[pos:n], 0)
			if end < 0 {
				end = n - pos
			}
			name := string(buf[pos : pos+end])
			pos += end + 1

			if isPseudoEntry(name) {
				continue
			}
			if !yield(name, nil) {
				return false, nil
			}
		}
	}
}
