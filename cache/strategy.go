package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Config struct {
	Driver     string        `mapstructure:"driver" json:"driver" yaml:"driver" default:"memory" validate:"oneof=none memory redis"`
	TTL        time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl" default:"10m"`
	Prefix     string        `mapstructure:"prefix" json:"prefix" yaml:"prefix" default:"thumb:"`
	MaxEntries int           `mapstructure:"max-entries" json:"maxEntries" yaml:"max-entries" default:"512"`
	Redis      RedisConfig   `mapstructure:"redis" json:"redis" yaml:"redis"`
}

// New builds the adapter selected by cfg.Driver. It returns nil for the
// none driver.
func New(ctx context.Context, cfg Config) (Adapter, error) {
	switch cfg.Driver {
	case DriverNone:
		return nil, nil
	case DriverMemory, "":
		return NewMemoryAdapter(cfg.MaxEntries, time.Minute), nil
	case DriverRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisAdapter(client), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key identifies a thumbnail request: the same source bytes converted
// between the same formats with the same resampler, preset list and
// quality. resampler names the resize engine and filter, e.g.
// "nfnt/lanczos3".
func Key(prefix, digest, source, target, resampler string, presets []string, quality int) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(digest)
	b.WriteByte(':')
	b.WriteString(source)
	b.WriteString("->")
	b.WriteString(target)
	b.WriteByte(':')
	b.WriteString(resampler)
	b.WriteByte(':')
	b.WriteString(strings.Join(presets, ","))
	if quality > 0 {
		fmt.Fprintf(&b, ":q%d", quality)
	}
	return b.String()
}
