// Package paths resolves the configuration and history directories of an
// extension binary. Each extension gets its own subdirectory named after it
// under a shared "settings-extensions" root.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// RootDirName is the directory shared by every extension under the platform
// config and data directories.
const RootDirName = "settings-extensions"

// Environment variable names for directory overrides.
const (
	EnvConfigDir  = "SETTINGS_EXTENSION_CONFIG_DIR"
	EnvHistoryDir = "SETTINGS_EXTENSION_HISTORY_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory of
// the named extension.
//
// Linux:   $XDG_CONFIG_HOME/settings-extensions/<name> (fallback ~/.config/...)
// macOS:   ~/Library/Application Support/settings-extensions/<name>
// Windows: %APPDATA%/settings-extensions/<name>
func DefaultConfigDir(name string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, RootDirName, name), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", RootDirName, name), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, RootDirName, name), nil
	}
}

// DefaultDataDir returns the platform-specific data directory of the named
// extension.
//
// Linux:   $XDG_DATA_HOME/settings-extensions/<name> (fallback ~/.local/share/...)
// macOS:   ~/Library/Application Support/settings-extensions/<name>
// Windows: %APPDATA%/settings-extensions/<name>
func DefaultDataDir(name string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, RootDirName, name), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", RootDirName, name), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, RootDirName, name), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > SETTINGS_EXTENSION_CONFIG_DIR env >
// DefaultConfigDir(name).
func ResolveConfigDir(flag, name string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir(name)
}

// ResolveHistoryDir returns the version history directory following the
// precedence chain: flag > configYAMLValue > SETTINGS_EXTENSION_HISTORY_DIR
// env > DefaultDataDir(name)/history.
//
// A relative configYAMLValue is taken relative to configDir, so a config.yaml
// can point at a directory next to itself.
func ResolveHistoryDir(flag, configYAMLValue, configDir, name string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		if filepath.IsAbs(configYAMLValue) {
			return filepath.Clean(configYAMLValue), nil
		}
		return filepath.Join(configDir, configYAMLValue), nil
	}
	if env := os.Getenv(EnvHistoryDir); env != "" {
		return filepath.Abs(env)
	}
	dir, err := DefaultDataDir(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}
