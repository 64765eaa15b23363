package config

import (
	"strings"
	"time"
)

const baseURLVar = "API_BASE_URL"

// Platform selects the credential strategy.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
)

type APIConfig interface {
	GetBaseURL() string
	GetProxied() bool
	GetProxyOrigin() string
	GetPlatform() Platform
	GetRequestTimeout() time.Duration
}

type API struct {
	BaseURL        string        `yaml:"base_url" env:"API_BASE_URL"`
	Proxied        bool          `yaml:"proxied" env:"API_PROXIED" env-default:"false"`
	ProxyOrigin    string        `yaml:"proxy_origin" env:"API_PROXY_ORIGIN" env-default:"http://localhost:3000"`
	Platform       string        `yaml:"platform" env:"PLATFORM" env-default:"web"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"API_REQUEST_TIMEOUT" env-default:"30s"`
}

var _ APIConfig = API{}

// GetBaseURL returns the backend base URL without a trailing slash.
// Proxied deployments return an empty string: calls go to same-origin relative paths.
func (a API) GetBaseURL() string {
	if a.Proxied {
		return ""
	}
	return strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
}

func (a API) GetProxied() bool {
	return a.Proxied
}

// GetProxyOrigin is the origin relative paths are resolved against when proxied.
func (a API) GetProxyOrigin() string {
	return strings.TrimRight(a.ProxyOrigin, "/")
}

func (a API) GetPlatform() Platform {
	if a.Platform == "" {
		return PlatformWeb
	}
	return Platform(strings.ToLower(a.Platform))
}

func (a API) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return a.RequestTimeout
}
