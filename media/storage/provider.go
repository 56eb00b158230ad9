// Package storage publishes encoded thumbnails to a blob store.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Provider is a flat key/value blob store that can serve its objects by URL.
type Provider interface {
	Name() string
	// Upload stores r under key and returns its public URL.
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// Drivers.
const (
	DriverNone  = "none"
	DriverLocal = "local"
	DriverOSS   = "oss"
)

type Config struct {
	Driver string      `mapstructure:"driver" json:"driver" yaml:"driver" default:"none" validate:"oneof=none local oss"`
	Local  LocalConfig `mapstructure:"local" json:"local" yaml:"local"`
	OSS    OSSConfig   `mapstructure:"oss" json:"oss" yaml:"oss"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base-path" json:"basePath" yaml:"base-path" default:"data/thumbnails"`
	BaseURL  string `mapstructure:"base-url" json:"baseURL" yaml:"base-url" default:"/thumbnails"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access-key-id" json:"-" yaml:"access-key-id"`
	AccessKeySecret string `mapstructure:"access-key-secret" json:"-" yaml:"access-key-secret"`
	Bucket          string `mapstructure:"bucket" json:"bucket" yaml:"bucket"`
	Domain          string `mapstructure:"domain" json:"domain" yaml:"domain"`
}

// NewProvider builds the provider selected by cfg.Driver. It returns nil
// for the none driver.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return nil, nil
	case DriverLocal:
		return NewLocalProvider(cfg.Local.BasePath, cfg.Local.BaseURL)
	case DriverOSS:
		if cfg.OSS.Endpoint == "" || cfg.OSS.Bucket == "" {
			return nil, fmt.Errorf("oss provider requires endpoint and bucket")
		}
		return NewOSSProvider(cfg.OSS.Endpoint, cfg.OSS.AccessKeyID, cfg.OSS.AccessKeySecret, cfg.OSS.Bucket, cfg.OSS.Domain)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// cleanKey normalises an object key and rejects keys escaping the root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid object key %q", key)
		}
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
