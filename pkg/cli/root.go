// Package cli is the command-line front end shared by extension binaries.
//
// An extension's main package builds its *extension.Extension and hands it
// to Execute. Every protocol operation gets a subcommand under "proto1" that
// reads its payload from a flag, a file, or stdin and writes one protocol
// response to stdout. Logs go to stderr.
//
// Exit codes: 0 for an ok response, 1 for an error response or bad usage,
// 2 when the command could not run at all (I/O or configuration failure).
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/settings-sdk/internal/logging"
	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/protocol"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errErrorStatus marks a command that wrote an error response. The response
// already describes the problem, so nothing more is printed.
var errErrorStatus = errors.New("error response")

// sysError marks failures that keep a command from running.
type sysError struct {
	err error
}

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

func sysErr(format string, args ...any) error {
	return &sysError{err: fmt.Errorf(format, args...)}
}

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	logLevel  string
	logFormat string
	encoding  string
}

// app is the state of one CLI invocation.
type app struct {
	ext       *extension.Extension
	flags     rootFlags
	configDir string
	cfg       types.Config
	logger    *slog.Logger
	codec     protocol.Codec
}

// NewRootCmd returns the command tree for ext.
func NewRootCmd(ext *extension.Extension) *cobra.Command {
	a := &app{
		ext:    ext,
		cfg:    types.DefaultConfig(),
		logger: logging.Discard(),
		codec:  protocol.JSON{},
	}

	root := &cobra.Command{
		Use:           ext.Name(),
		Short:         fmt.Sprintf("Settings extension %s", ext.Name()),
		Long:          fmt.Sprintf("%s validates, generates and migrates its settings over the %s protocol.", ext.Name(), protocol.Proto1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.logLevel, "log-level", types.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", types.DefaultLogFormat, "log format: text, json, auto")
	pf.StringVar(&a.flags.encoding, "encoding", types.DefaultEncoding, "wire encoding: json, cbor")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return a.setup(cmd, root)
	}

	root.AddCommand(a.newProtoCmd())
	root.AddCommand(a.newRequestCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newHistoryCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// setup loads the configuration and builds the logger and codec.
func (a *app) setup(cmd, root *cobra.Command) error {
	dir, cfg, err := loadConfig(a.flags.configDir, a.ext.Name(), root.PersistentFlags())
	if err != nil {
		return err
	}
	logger, err := logging.FromConfig(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return &sysError{err: err}
	}
	c, err := protocol.CodecFor(cfg.Encoding)
	if err != nil {
		return &sysError{err: err}
	}

	a.configDir = dir
	a.cfg = cfg
	a.logger = logger.With("extension", a.ext.Name())
	a.codec = c
	a.logger.Debug("config loaded", "config_dir", dir, "encoding", cfg.Encoding)
	return nil
}

func (a *app) dispatcher() *protocol.Dispatcher {
	return protocol.NewDispatcher(a.ext, protocol.WithCodec(a.codec), protocol.WithLogger(a.logger))
}

// Run executes the CLI with args and returns the process exit code.
func Run(ext *extension.Extension, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd(ext)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return exitCode(root.Execute(), stderr)
}

// Execute runs the CLI with the process arguments and exits.
func Execute(ext *extension.Extension) {
	os.Exit(Run(ext, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	var se *sysError
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errErrorStatus):
		return exitUserError
	case errors.As(err, &se):
		fmt.Fprintln(stderr, "error:", err)
		return exitSysError
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitUserError
	}
}
