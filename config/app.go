package config

import (
	"fmt"
	"time"

	"github.com/leeforge/thumbnailer/cache"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
	"github.com/leeforge/thumbnailer/media/storage"
	"github.com/leeforge/thumbnailer/security"
)

// AppConfig is the complete thumbnailer configuration.
type AppConfig struct {
	Server  ServerConfig           `mapstructure:"server" json:"server" yaml:"server"`
	Limits  format.Limits          `mapstructure:"limits" json:"limits" yaml:"limits"`
	Resize  processor.ResizeConfig `mapstructure:"resize" json:"resize" yaml:"resize"`
	Encode  format.EncodeOptions   `mapstructure:"encode" json:"encode" yaml:"encode"`
	Cache   cache.Config           `mapstructure:"cache" json:"cache" yaml:"cache"`
	Storage storage.Config         `mapstructure:"storage" json:"storage" yaml:"storage"`
	Log     logging.Config         `mapstructure:"log" json:"log" yaml:"log"`
	Metrics MetricsConfig          `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr" default:":8080" validate:"required"`

	// MaxConcurrent bounds pipeline runs in flight; AcquireTimeout is how
	// long a request waits for a slot before 503.
	MaxConcurrent  int64         `mapstructure:"max-concurrent" json:"maxConcurrent" yaml:"max-concurrent" default:"4" validate:"gte=1"`
	AcquireTimeout time.Duration `mapstructure:"acquire-timeout" json:"acquireTimeout" yaml:"acquire-timeout" default:"5s"`

	MaxBodyBytes    int64         `mapstructure:"max-body-bytes" json:"maxBodyBytes" yaml:"max-body-bytes" default:"33554432" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" json:"readTimeout" yaml:"read-timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" json:"writeTimeout" yaml:"write-timeout" default:"60s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" json:"shutdownTimeout" yaml:"shutdown-timeout" default:"15s"`

	DefaultTarget  string `mapstructure:"default-target" json:"defaultTarget" yaml:"default-target" default:"image/png" validate:"required"`
	DefaultPresets string `mapstructure:"default-presets" json:"defaultPresets" yaml:"default-presets" default:"small,medium,large" validate:"required"`

	Headers security.HeadersConfig `mapstructure:"headers" json:"headers" yaml:"headers"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" default:"true"`
}

// Validate checks what struct tags cannot express.
func (c *AppConfig) Validate() error {
	if _, err := format.DefaultRegistry().Encoder(format.Parse(c.Server.DefaultTarget)); err != nil {
		return fmt.Errorf("server.default-target: %w", err)
	}
	if _, err := processor.ParsePresets(c.Server.DefaultPresets); err != nil {
		return fmt.Errorf("server.default-presets: %w", err)
	}
	if c.Storage.Driver == storage.DriverOSS && (c.Storage.OSS.Endpoint == "" || c.Storage.OSS.Bucket == "") {
		return fmt.Errorf("storage.oss: endpoint and bucket are required")
	}
	return nil
}

// Load reads the application config with opts, or the default options.
func Load(opts ...ConfigOptions) (*AppConfig, *Config, error) {
	c, err := NewConfig(opts...)
	if err != nil {
		return nil, nil, err
	}
	var app AppConfig
	if err := c.Bind(&app); err != nil {
		return nil, nil, err
	}
	return &app, c, nil
}
