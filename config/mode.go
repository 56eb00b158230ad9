package config

import (
	"os"
	"strings"
)

// EnvModeKey selects the environment-specific config overlay.
const EnvModeKey = "THUMBNAILER_ENV"

type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

func ParseMode(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// CurrentMode reads EnvModeKey on every call so tests can switch it.
func CurrentMode() Mode {
	return ParseMode(os.Getenv(EnvModeKey))
}

// aliases returns every file suffix accepted for m.
func (m Mode) aliases() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}
