package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/settings-sdk/internal/paths"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// EnvPrefix prefixes the environment overrides of config keys, as in
	// SETTINGS_EXTENSION_LOG_LEVEL.
	EnvPrefix = "SETTINGS_EXTENSION"

	cfgKeyLogLevel   = "log_level"
	cfgKeyLogFormat  = "log_format"
	cfgKeyEncoding   = "encoding"
	cfgKeyHistoryDir = "history_dir"
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level":  cfgKeyLogLevel,
	"log-format": cfgKeyLogFormat,
	"encoding":   cfgKeyEncoding,
}

// loadConfig reads config.yaml from the resolved config directory. Values
// come from flags, then SETTINGS_EXTENSION_* variables, then the file, then
// defaults. A missing config.yaml is not an error.
//
// history_dir is read from the file only; its environment override is
// applied by paths.ResolveHistoryDir below the file value.
func loadConfig(flagDir, name string, fs *pflag.FlagSet) (string, types.Config, error) {
	dir, err := paths.ResolveConfigDir(flagDir, name)
	if err != nil {
		return "", types.Config{}, sysErr("resolve config dir: %w", err)
	}

	def := types.DefaultConfig()
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	v.SetDefault(cfgKeyEncoding, def.Encoding)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)

	for flag, key := range flagKeys {
		if err := v.BindEnv(key); err != nil {
			return "", types.Config{}, sysErr("bind env %s: %w", key, err)
		}
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return "", types.Config{}, sysErr("bind flag --%s: %w", flag, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", types.Config{}, sysErr("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return "", types.Config{}, sysErr("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return "", types.Config{}, sysErr("invalid config in %s: %w", dir, err)
	}
	return dir, cfg, nil
}

// defaultConfigYAML renders the default configuration as written by
// "config init".
func defaultConfigYAML(name string) ([]byte, error) {
	body, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("# %s settings extension configuration\n"+
		"# Keys may be overridden by %s_<KEY> variables and by flags.\n"+
		"# %s: version history directory (default: platform data dir)\n\n",
		name, EnvPrefix, cfgKeyHistoryDir)
	return append([]byte(header), body...), nil
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return sysErr("create config directory: %w", err)
			}
			path := filepath.Join(a.configDir, configFileExt)
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
				return nil
			}
			data, err := defaultConfigYAML(a.ext.Name())
			if err != nil {
				return sysErr("render config: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return sysErr("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return sysErr("render config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# config dir: %s\n", a.configDir)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return cmd
}
