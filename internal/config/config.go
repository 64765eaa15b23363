package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	apperrors "github.com/jrsteele09/dealscope-client/internal/errors"
)

type Config interface {
	EnvConfig
	APIConfig
	AuthConfig
	CompsConfig
	Validate() error
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars `yaml:"app"`
	API     `yaml:"api"`
	Auth    `yaml:"auth"`
	Comps   `yaml:"comps"`
}

var _ Config = (*mainConfig)(nil)

// New builds a configuration from environment variables only.
func New() (Config, error) {
	var cfg mainConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("[config New] failed to read env: %w", err)
	}
	return &cfg, nil
}

// MustLoad panics if the configuration can't be loaded or is invalid.
func MustLoad(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves configuration in order: explicit path, CONFIG_PATH, ./local.yaml, then env only.
// Environment variables always override file values.
func Load(path string) (Config, error) {
	var cfg mainConfig

	readFile := func(p string) (Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("[config Load] config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("[config Load] failed to read config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("[config Load] failed to read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *mainConfig) Validate() error {
	if !c.GetProxied() {
		base := strings.TrimSpace(c.API.BaseURL)
		if base == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s is required unless API_PROXIED is set", baseURLVar)
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "%s must be an absolute URL, got %q", baseURLVar, base)
		}
	}

	switch c.GetPlatform() {
	case PlatformWeb:
	case PlatformMobile:
		if c.GetSecureStorePassphrase() == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "SECURE_STORE_PASSPHRASE is required on the mobile platform")
		}
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "unknown platform %q", c.API.Platform)
	}

	if c.GetCompsMaxAttempts() < 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "COMPS_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
