package types

import "errors"

// Config holds the runtime settings an extension binary reads from its
// config.yaml, environment, and flags. An empty HistoryDir selects the
// platform data directory.
type Config struct {
	LogLevel   string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat  string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
	Encoding   string `json:"encoding" yaml:"encoding" mapstructure:"encoding"`
	HistoryDir string `json:"history_dir,omitempty" yaml:"history_dir,omitempty" mapstructure:"history_dir"`
}

// Supported wire encodings.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
	LogFormatAuto = "auto" // text on a terminal, json otherwise
)

// Default configuration values.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = LogFormatText
	DefaultEncoding  = EncodingJSON
)

// Config validation errors.
var (
	ErrEncodingUnknown  = errors.New("unknown encoding")
	ErrLogLevelUnknown  = errors.New("unknown log level")
	ErrLogFormatUnknown = errors.New("unknown log format")
)

var (
	knownEncodings  = map[string]bool{EncodingJSON: true, EncodingCBOR: true}
	knownLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	knownLogFormats = map[string]bool{LogFormatText: true, LogFormatJSON: true, LogFormatAuto: true}
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Encoding:  DefaultEncoding,
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if !knownEncodings[c.Encoding] {
		return ErrEncodingUnknown
	}
	if !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	if !knownLogFormats[c.LogFormat] {
		return ErrLogFormatUnknown
	}
	return nil
}
