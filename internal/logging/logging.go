// Package logging builds the slog loggers used by extension binaries.
// Logs always go to stderr so stdout stays reserved for protocol responses.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", types.ErrLogLevelUnknown, name)
}

// New returns a logger writing to w at the given level and format. The auto
// format picks text when w is a terminal and JSON otherwise.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case types.LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case types.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case types.LogFormatAuto:
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrLogFormatUnknown, format)
}

// FromConfig builds the logger described by cfg.
func FromConfig(w io.Writer, cfg types.Config) (*slog.Logger, error) {
	return New(w, cfg.LogLevel, cfg.LogFormat)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
