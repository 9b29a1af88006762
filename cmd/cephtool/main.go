// Command cephtool moves files between the local machine and a CephFS
// namespace.
//
//	cephtool [global flags] <command> [args]
//
// Run "cephtool help" for the command list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/marmos91/cephtool/internal/version"
	"github.com/marmos91/cephtool/pkg/session"
)

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	configPath string
	userInfo   string
	root       string
	verbose    bool
	version    bool
	flags      *pflag.FlagSet
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseGlobal(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		printUsage(stdout)
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if opts.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	name := rest[0]
	if name == "help" {
		printUsage(stdout)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr)
		return 2
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: cephtool %s %s\n\n%s\n", name, cmd.usage, cmd.summary)
		fs.PrintDefaults()
	}
	runner := cmd.run
	if cmd.flags != nil {
		runner = cmd.flags(fs)
	}
	if err := fs.Parse(rest[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < cmd.minArgs || (cmd.maxArgs >= 0 && fs.NArg() > cmd.maxArgs) {
		fs.Usage()
		return 2
	}

	a := &app{opts: opts, stdout: stdout, stderr: stderr}
	if !cmd.standalone {
		if a, err = newApp(ctx, opts, stdout, stderr); err != nil {
			fmt.Fprintf(stderr, "cephtool: %v\n", err)
			return 1
		}
		defer a.close()
	}

	if cmd.login {
		if err := a.login(ctx); err != nil {
			fmt.Fprintf(stderr, "cephtool: login failed: %v\n", err)
			return exitCode(err)
		}
	}

	if err := runner(ctx, a, fs.Args()); err != nil {
		fmt.Fprintf(stderr, "cephtool %s: %v\n", name, err)
		return exitCode(err)
	}
	return 0
}

// parseGlobal consumes the global flags and returns the command line that
// follows them.
func parseGlobal(args []string, stderr io.Writer) (*globalOptions, []string, error) {
	opts := &globalOptions{}
	fs := pflag.NewFlagSet("cephtool", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {}

	fs.StringVar(&opts.configPath, "config", "", "configuration file (default "+defaultConfigHint()+")")
	fs.StringVarP(&opts.userInfo, "user-info", "i", "", "login info file (default <state dir>/user.info)")
	fs.StringVarP(&opts.root, "root", "r", "", "remote directory to mount, overrides the configured root")
	fs.BoolVar(&opts.verbose, "verbose", false, "log at debug level")
	fs.BoolVarP(&opts.version, "version", "v", false, "print the version and exit")
	fs.String("backend", "", "remote filesystem backend (ceph, memory, badger, sqlite, s3)")
	fs.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.root != "" && !strings.HasPrefix(opts.root, "/") {
		opts.root = "/" + opts.root
	}
	opts.flags = fs
	return opts, fs.Args(), nil
}

// configFlags maps configuration keys to the global flags overriding them.
func (o *globalOptions) configFlags() map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"backend.type":  o.flags.Lookup("backend"),
		"logging.level": o.flags.Lookup("log-level"),
	}
}

// exitCode maps failures to the errno the session reported, like the
// helper this tool replaces, and to 1 otherwise.
func exitCode(err error) int {
	var serr *session.Error
	if errors.As(err, &serr) {
		if code := int(serr.Errno()); code > 0 && code < 126 {
			return code
		}
	}
	return 1
}
