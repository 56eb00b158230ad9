package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Output destinations.
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level" json:"level" yaml:"level" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format (json or console).
	Format string `mapstructure:"format" json:"format" yaml:"format" default:"json" validate:"oneof=json console"`

	// Output selects stdout, a rotated file, or both.
	Output string `mapstructure:"output" json:"output" yaml:"output" default:"stdout" validate:"oneof=stdout file both"`

	// File is the path of the log file when Output includes a file.
	File string `mapstructure:"file" json:"file" yaml:"file" default:"logs/thumbnailer.log"`

	// TimeFormat is the time layout; empty selects ISO8601.
	TimeFormat string `mapstructure:"time-format" json:"timeFormat" yaml:"time-format"`

	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize int `mapstructure:"max-size" json:"maxSize" yaml:"max-size" default:"100"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `mapstructure:"max-age" json:"maxAge" yaml:"max-age" default:"7"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `mapstructure:"max-backups" json:"maxBackups" yaml:"max-backups" default:"10"`

	// Compress gzips rotated files.
	Compress bool `mapstructure:"compress" json:"compress" yaml:"compress" default:"true"`

	// ShowCaller adds the caller to each entry.
	ShowCaller bool `mapstructure:"show-caller" json:"showCaller" yaml:"show-caller"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		Output:     OutputStdout,
		File:       "logs/thumbnailer.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 10,
		Compress:   true,
	}
}

// ZapLevel converts the string level to zapcore.Level, falling back to info.
func (c Config) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(c.Level)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// applyDefaults fills empty fields from DefaultConfig.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Level == "" {
		c.Level = d.Level
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.File == "" {
		c.File = d.File
	}
	if c.MaxSize == 0 {
		c.MaxSize = d.MaxSize
	}
	if c.MaxAge == 0 {
		c.MaxAge = d.MaxAge
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = d.MaxBackups
	}
}
