package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/marmos91/cephtool/internal/logger"
	"github.com/marmos91/cephtool/internal/state"
	"github.com/marmos91/cephtool/pkg/config"
	"github.com/marmos91/cephtool/pkg/remotefs"
	"github.com/marmos91/cephtool/pkg/session"
)

// app carries what a single command invocation needs.
type app struct {
	opts    *globalOptions
	cfg     *config.Config
	log     *zap.Logger
	metrics *config.MetricsResult
	state   *state.Store
	driver  remotefs.Driver
	session *session.Session
	stdout  io.Writer
	stderr  io.Writer

	closers []func()
}

func defaultConfigHint() string {
	return config.GetDefaultConfigPath()
}

// newApp loads configuration and builds the logger, metrics, driver and an
// unmounted session.
func newApp(ctx context.Context, opts *globalOptions, stdout, stderr io.Writer) (a *app, err error) {
	cfg, err := config.LoadWithFlags(opts.configPath, opts.configFlags())
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Logging.Level = "DEBUG"
	}

	a = &app{
		opts:   opts,
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		state:  state.New(cfg.State.Dir, state.WithUserInfoPath(opts.userInfo)),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	log, closeLog, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a.log = log
	a.closers = append(a.closers, closeLog)

	a.metrics = config.InitializeMetrics(&cfg.Metrics)
	a.closers = append(a.closers, func() {
		if err := a.metrics.Flush(); err != nil {
			a.log.Warn("writing metrics", zap.Error(err))
		}
	})

	driver, err := config.CreateDriver(ctx, &cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Backend.Type, err)
	}
	a.driver = driver
	if c, ok := driver.(io.Closer); ok {
		a.closers = append(a.closers, func() {
			if err := c.Close(); err != nil {
				a.log.Warn("closing backend", zap.Error(err))
			}
		})
	}

	sessionOpts, err := config.SessionOptions(cfg, log, a.metrics.SessionMetrics)
	if err != nil {
		return nil, err
	}
	a.session = session.New(driver, sessionOpts...)
	a.closers = append(a.closers, func() {
		if err := a.session.Close(); err != nil {
			a.log.Warn("closing session", zap.Error(err))
		}
	})

	a.log.Debug("configuration loaded",
		zap.String("backend", cfg.Backend.Type),
		zap.String("state_dir", cfg.State.Dir))
	return a, nil
}

// close releases everything in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// loginInfo resolves the login info: the configuration file first, then
// the info saved by "cephtool config", then the --root flag.
func (a *app) loginInfo() (*state.UserInfo, error) {
	cluster := a.cfg.Cluster
	info := &state.UserInfo{
		ConfFile: cluster.ConfFile,
		MonHost:  cluster.MonHost,
		Name:     cluster.User,
		Key:      cluster.Key,
		Root:     cluster.Root,
	}

	saved, err := a.state.LoadUserInfo()
	switch {
	case errors.Is(err, state.ErrNoUserInfo):
	case err != nil:
		return nil, err
	default:
		mergeUserInfo(info, saved)
	}

	if a.opts.root != "" {
		info.Root = a.opts.root
	}
	return info, nil
}

// mergeUserInfo overlays the non-empty fields of saved onto info. A saved
// connection target replaces both configured ones.
func mergeUserInfo(info, saved *state.UserInfo) {
	if saved.ConfFile != "" || saved.MonHost != "" {
		info.ConfFile, info.MonHost = saved.ConfFile, saved.MonHost
	}
	if saved.Name != "" {
		info.Name = saved.Name
	}
	if saved.Key != "" {
		info.Key = saved.Key
	}
	if saved.Root != "" {
		info.Root = saved.Root
	}
}

// login mounts with the resolved login info and returns to the last
// working directory.
func (a *app) login(ctx context.Context) error {
	info, err := a.loginInfo()
	if err != nil {
		return err
	}
	if err := a.loginWith(ctx, info); err != nil {
		return err
	}
	a.restoreWorkDir(ctx)
	return nil
}

// loginWith applies info to the session and logs in.
func (a *app) loginWith(ctx context.Context, info *state.UserInfo) error {
	switch {
	case info.MonHost != "":
		if err := a.session.SetMonitorAddress(info.MonHost); err != nil {
			return err
		}
	case info.ConfFile != "":
		if err := a.session.SetConfigFile(info.ConfFile); err != nil {
			return err
		}
	}
	return a.session.Login(ctx, info.Name, info.Key, info.Root)
}

// restoreWorkDir changes to the directory left by the last "cd". A stale
// directory only warns.
func (a *app) restoreWorkDir(ctx context.Context) {
	dir, err := a.state.LastWorkDir()
	if err != nil {
		a.log.Warn("reading last working directory", zap.Error(err))
		return
	}
	if dir == "" {
		return
	}
	if err := a.session.Chdir(ctx, dir); err != nil {
		fmt.Fprintf(a.stderr, "warning: unable to change to last work dir %s\n", dir)
	}
}
