// Package session is the client-side helper over a remote POSIX filesystem.
//
// A Session owns one connection handle obtained from a remotefs.Driver and
// layers the operations applications actually want on top of the raw call
// surface:
//
//   - login / shutdown with a configurable cluster target and secret source
//   - path safety: parents are created before anything is written or moved
//   - a chunked transfer engine that absorbs short writes and short reads
//   - recursive tree mirroring and removal
//   - two directory enumeration protocols
//
// A Session is not safe for concurrent use. Independent Sessions may run in
// parallel, including over the same driver.
package session

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marmos91/cephtool/internal/ratelimiter"
	"github.com/marmos91/cephtool/pkg/metrics"
	"github.com/marmos91/cephtool/pkg/remotefs"
)

const (
	// DefaultUser is the client identity used when Login gets no user.
	DefaultUser = "admin"

	// DefaultRoot is the mount root used when Login gets no root.
	DefaultRoot = "/"

	// DefaultMaxDepth bounds both recursive tree walks.
	DefaultMaxDepth = 256
)

// Session is an authenticated connection to a remote filesystem.
type Session struct {
	id       uuid.UUID
	driver   remotefs.Driver
	log      *zap.Logger
	metrics  metrics.SessionMetrics
	limiter  *ratelimiter.RateLimiter
	maxDepth int

	target Target
	creds  Credentials

	h    *handle
	user string
	root string
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger sets the sink for operation failures and transfer warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.SessionMetrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLimiter throttles the transfer engine. Each chunk waits for its bytes.
func WithLimiter(l *ratelimiter.RateLimiter) Option {
	return func(s *Session) { s.limiter = l }
}

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(depth int) Option {
	return func(s *Session) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithTarget sets the initial connection target.
func WithTarget(t Target) Option {
	return func(s *Session) { s.target = t }
}

// WithCredentials sets the initial secret sources.
func WithCredentials(c Credentials) Option {
	return func(s *Session) { s.creds = c }
}

// New returns an unmounted Session over driver.
func New(driver remotefs.Driver, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		driver:   driver,
		log:      zap.NewNop(),
		metrics:  metrics.NewNoopSessionMetrics(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(
		zap.String("driver", driver.Name()),
		zap.Stringer("session", s.id))
	return s
}

// ID identifies the Session in log records.
func (s *Session) ID() uuid.UUID { return s.id }

// ============================================================================
// Configuration
// ============================================================================

// SetConfigFile makes path the connection target. It replaces a monitor
// address and clears the inline key.
func (s *Session) SetConfigFile(path string) error {
	if path == "" {
		return s.fail("set_config_file", path, ErrInvalidArgument)
	}
	s.target = ConfigFileTarget{Path: path}
	s.creds.Key = ""
	return nil
}

// SetMonitorAddress makes addr the connection target. It replaces a config
// file and clears the inline key.
func (s *Session) SetMonitorAddress(addr string) error {
	if addr == "" {
		return s.fail("set_mon_addr", addr, ErrInvalidArgument)
	}
	s.target = MonitorTarget{Addr: addr}
	s.creds.Key = ""
	return nil
}

// SetUserKey stores an inline key. It takes priority over a key file.
func (s *Session) SetUserKey(key string) error {
	if key == "" {
		return s.fail("set_user_key", "", ErrInvalidArgument)
	}
	s.creds.Key = key
	return nil
}

// SetUserKeyFile stores the path of a key file.
func (s *Session) SetUserKeyFile(path string) error {
	if path == "" {
		return s.fail("set_user_keyfile", path, ErrInvalidArgument)
	}
	s.creds.KeyFile = path
	return nil
}

// Target returns the active connection target, or nil.
func (s *Session) Target() Target { return s.target }

// Credentials returns the configured secret sources.
func (s *Session) Credentials() Credentials { return s.creds }

// ============================================================================
// Lifecycle
// ============================================================================

// Login creates a handle for user, applies the target and secret, and mounts
// root. Empty user and root select DefaultUser and DefaultRoot; a non-empty
// key replaces the stored inline key.
//
// Any handle already held is released first. When a step fails the new
// handle stays allocated but unmounted, so operations report ErrNotMounted
// until the next Login or Shutdown.
func (s *Session) Login(ctx context.Context, user, key, root string) (err error) {
	const op = "login"
	defer s.observe(op, time.Now(), &err)

	if user == "" {
		user = DefaultUser
	}
	if root == "" {
		root = DefaultRoot
	}
	if key != "" {
		s.creds.Key = key
	}

	if err := s.releaseHandle(); err != nil {
		s.log.Warn("releasing previous handle", zap.Error(err))
	}

	m, err := s.driver.Create(user)
	if err != nil {
		return s.fail(op, user, err)
	}
	s.h = newHandle(m)

	if s.target != nil {
		if err := s.target.apply(m); err != nil {
			return s.fail(op, s.target.String(), err)
		}
	}
	if err := s.creds.Secret().apply(m); err != nil {
		return s.fail(op, user, err)
	}
	if err := m.Mount(ctx, root); err != nil {
		return s.fail(op, root, err)
	}

	s.user, s.root = user, root
	s.log.Debug("logged in", zap.String("user", user), zap.String("root", root))
	return nil
}

// Shutdown unmounts and releases the handle. Calling it again, or on a
// Session that never logged in, does nothing.
func (s *Session) Shutdown() error {
	if err := s.releaseHandle(); err != nil {
		return s.fail("shutdown", s.root, err)
	}
	return nil
}

// Close is Shutdown, for defer and io.Closer.
func (s *Session) Close() error { return s.Shutdown() }

// IsMounted reports whether operations can reach the remote filesystem.
func (s *Session) IsMounted() bool {
	return s.h != nil && s.h.m.IsMounted()
}

// User returns the identity of the last successful Login.
func (s *Session) User() string { return s.user }

// Root returns the mount root of the last successful Login.
func (s *Session) Root() string { return s.root }

func (s *Session) releaseHandle() error {
	if s.h == nil {
		return nil
	}
	h := s.h
	s.h = nil
	s.user, s.root = "", ""
	return h.release()
}

// mount returns the live handle or ErrNotMounted.
func (s *Session) mount() (remotefs.Mount, error) {
	if !s.IsMounted() {
		return nil, ErrNotMounted
	}
	return s.h.m, nil
}

func (s *Session) observe(op string, start time.Time, errp *error) {
	s.metrics.RecordOperation(op, time.Since(start), *errp)
}

// handle owns a remotefs.Mount and releases it exactly once, either
// explicitly or when the handle becomes unreachable.
type handle struct {
	m        remotefs.Mount
	released bool
	cleanup  runtime.Cleanup
}

func newHandle(m remotefs.Mount) *handle {
	h := &handle{m: m}
	h.cleanup = runtime.AddCleanup(h, func(m remotefs.Mount) { _ = releaseMount(m) }, m)
	return h
}

func (h *handle) release() error {
	if h.released {
		return nil
	}
	h.released = true
	h.cleanup.Stop()
	return releaseMount(h.m)
}

func releaseMount(m remotefs.Mount) error {
	if m.IsMounted() {
		if err := m.Unmount(); err != nil {
			return err
		}
	}
	return m.Release()
}
