package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/internal/state"
	"github.com/marmos91/cephtool/internal/version"
	"github.com/marmos91/cephtool/pkg/config"
	"github.com/marmos91/cephtool/pkg/session"
)

// runFunc executes a command after login.
type runFunc func(ctx context.Context, a *app, args []string) error

// command describes one subcommand.
type command struct {
	usage   string
	summary string
	minArgs int
	maxArgs int // -1 for no limit

	// login mounts the session before run
	login bool

	// standalone commands run without configuration or a backend
	standalone bool

	// flags registers command flags and returns the run function reading
	// them; it replaces run when set
	flags func(fs *pflag.FlagSet) runFunc
	run   runFunc
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"config": {
			usage:   "[-c CONF | -a ADDR] [-n NAME] [-k KEYFILE]",
			summary: "Record and verify login info, or show it when no target is given.",
			maxArgs: 0,
			flags:   configFlags,
		},
		"init": {
			usage:   "[--force]",
			summary: "Write a default configuration file.",
			maxArgs: 0, standalone: true,
			flags:   initFlags,
		},
		"upload": {
			usage:   "SRC... DST",
			summary: "Upload local files or directories.",
			minArgs: 2, maxArgs: -1, login: true,
			run: uploadCmd,
		},
		"download": {
			usage:   "SRC... DST",
			summary: "Download remote files.",
			minArgs: 2, maxArgs: -1, login: true,
			run: downloadCmd,
		},
		"remove": {
			usage:   "PATH...",
			summary: "Remove remote files or directory trees.",
			minArgs: 1, maxArgs: -1, login: true,
			run: removeCmd,
		},
		"pwd": {
			summary: "Print the remote working directory.",
			maxArgs: 0, login: true,
			run: pwdCmd,
		},
		"mkdir": {
			usage:   "PATH...",
			summary: "Create remote directories and their parents.",
			minArgs: 1, maxArgs: -1, login: true,
			run: mkdirCmd,
		},
		"cd": {
			usage:   "PATH",
			summary: "Change the remote working directory for later commands.",
			minArgs: 1, maxArgs: 1, login: true,
			run: cdCmd,
		},
		"ls": {
			usage:   "[-l] [PATH]",
			summary: "List a remote directory.",
			maxArgs: 1, login: true,
			flags: lsFlags,
		},
		"version": {
			summary: "Print the version.",
			maxArgs: 0, standalone: true,
			run: func(_ context.Context, a *app, _ []string) error {
				fmt.Fprintln(a.stdout, version.String())
				return nil
			},
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: cephtool [global flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s %s\t%s\n", name, commands[name].usage, commands[name].summary)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags:")
	fmt.Fprintln(w, "  --config FILE      configuration file")
	fmt.Fprintln(w, "  -i, --user-info    login info file")
	fmt.Fprintln(w, "  -r, --root DIR     remote directory to mount")
	fmt.Fprintln(w, "  --backend TYPE     remote filesystem backend")
	fmt.Fprintln(w, "  --log-level LEVEL  log level")
	fmt.Fprintln(w, "  --verbose          log at debug level")
	fmt.Fprintln(w, "  -v, --version      print the version")
}

// ============================================================================
// config / init
// ============================================================================

func configFlags(fs *pflag.FlagSet) runFunc {
	var info state.UserInfo
	var keyFile string
	fs.StringVarP(&info.ConfFile, "conf", "c", "", "ceph configuration file")
	fs.StringVarP(&info.MonHost, "cephaddr", "a", "", "ceph monitor address")
	fs.StringVarP(&info.Name, "name", "n", "", "client name for authentication")
	fs.StringVarP(&keyFile, "keyfile", "k", "", "file holding the key for authentication")

	return func(ctx context.Context, a *app, _ []string) error {
		if info.ConfFile != "" {
			abs, err := filepath.Abs(info.ConfFile)
			if err != nil {
				return err
			}
			if _, err := os.Stat(abs); err != nil {
				return fmt.Errorf("ceph configuration file: %w", err)
			}
			info.ConfFile = abs
		}
		if keyFile != "" {
			key, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("keyfile: %w", err)
			}
			info.Key = strings.TrimSpace(string(key))
		}
		return configCmd(ctx, a, info)
	}
}

func configCmd(ctx context.Context, a *app, info state.UserInfo) error {
	if info.ConfFile == "" && info.MonHost == "" {
		saved, err := a.state.LoadUserInfo()
		if errors.Is(err, state.ErrNoUserInfo) {
			return &session.Error{Op: "config", Err: fmt.Errorf("%w: -c or -a is required", session.ErrInvalidArgument)}
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "current user info:")
		fmt.Fprintln(a.stdout, "User: "+displayOr(saved.Name, session.DefaultUser))
		fmt.Fprintln(a.stdout, "Root path: "+displayOr(saved.Root, session.DefaultRoot))
		fmt.Fprintln(a.stdout, "Target: "+displayOr(saved.MonHost, saved.ConfFile))
		return nil
	}

	switch {
	case a.opts.root != "":
		info.Root = a.opts.root
	case info.Name != "":
		info.Root = "/" + info.Name
	}

	if err := a.loginWith(ctx, &info); err != nil {
		return err
	}
	if err := a.state.SaveUserInfo(&info); err != nil {
		fmt.Fprintf(a.stderr, "warning: unable to write login info to %s: %v\n", a.state.UserInfoPath(), err)
	}
	a.restoreWorkDir(ctx)

	fmt.Fprintln(a.stdout, "config cephfs successfully")
	fmt.Fprintln(a.stdout, "You can run upload or download command etc.")
	return nil
}

func displayOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func initFlags(fs *pflag.FlagSet) runFunc {
	force := fs.Bool("force", false, "overwrite an existing file")
	return func(_ context.Context, a *app, _ []string) error {
		path := a.opts.configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.InitConfigToPath(path, *force); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "configuration written to %s\n", path)
		return nil
	}
}

// ============================================================================
// Transfers
// ============================================================================

func uploadCmd(ctx context.Context, a *app, args []string) error {
	srcs, dst := args[:len(args)-1], args[len(args)-1]

	var errs []error
	for _, src := range srcs {
		if err := a.session.Upload(ctx, dst, src); err != nil {
			if session.Errno(err) == unix.ENOENT && !exists(src) {
				fmt.Fprintf(a.stderr, "upload local path [%s] No such file or directory\n", src)
				errs = append(errs, err)
				continue
			}
			return err
		}
		fmt.Fprintf(a.stdout, "upload local path [%s] to cephfs path [%s] successfully\n", src, dst)
	}
	return errors.Join(errs...)
}

func downloadCmd(ctx context.Context, a *app, args []string) error {
	srcs, dst := args[:len(args)-1], args[len(args)-1]
	for _, src := range srcs {
		if err := a.session.Download(ctx, dst, src); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "download to local path [%s] from cephfs path [%s] successfully\n", dst, src)
	}
	return nil
}

func removeCmd(ctx context.Context, a *app, args []string) error {
	var errs []error
	for _, p := range args {
		err := a.session.RemoveAny(ctx, p)
		switch {
		case err == nil:
			fmt.Fprintf(a.stdout, "remove cephfs path [%s] successfully\n", p)
		case session.Errno(err) == unix.ENOENT:
			fmt.Fprintf(a.stderr, "remove path [%s] No such file or directory\n", p)
			errs = append(errs, err)
		default:
			return err
		}
	}
	return errors.Join(errs...)
}

func exists(localPath string) bool {
	_, err := os.Stat(localPath)
	return err == nil
}

// ============================================================================
// Navigation
// ============================================================================

func pwdCmd(ctx context.Context, a *app, _ []string) error {
	cwd, err := a.session.Getcwd(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, cwd)
	return nil
}

func mkdirCmd(ctx context.Context, a *app, args []string) error {
	for _, p := range args {
		if err := a.session.Mkdir(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "mkdir path [%s] successfully\n", p)
	}
	return nil
}

func cdCmd(ctx context.Context, a *app, args []string) error {
	if err := a.session.Chdir(ctx, args[0]); err != nil {
		return err
	}
	cwd, err := a.session.Getcwd(ctx)
	if err != nil {
		return err
	}
	if err := a.state.SetLastWorkDir(cwd); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "chdir path [%s] successfully\n", cwd)
	return nil
}

func lsFlags(fs *pflag.FlagSet) runFunc {
	long := fs.BoolP("long", "l", false, "show type and size")
	return func(ctx context.Context, a *app, args []string) error {
		p := "./"
		if len(args) == 1 {
			p = args[0]
		}
		return lsCmd(ctx, a, p, *long)
	}
}

func lsCmd(ctx context.Context, a *app, p string, long bool) error {
	names, err := a.session.ListDirBuffered(ctx, p)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.stdout, "empty directory")
		return nil
	}
	slices.Sort(names)

	if !long {
		for _, name := range names {
			fmt.Fprintln(a.stdout, name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, name := range names {
		child := session.JoinPath(p, name)
		kind := a.session.Stat(ctx, child)
		size := "-"
		if kind == session.KindFile {
			if n, err := a.session.Length(ctx, child); err == nil {
				size = humanize.IBytes(uint64(n))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t %s\n", kind, size, name)
	}
	return tw.Flush()
}
