package config

import "time"

// MaxMemoryTokenTTL bounds how long an in-memory access token may be replayed.
const MaxMemoryTokenTTL = 60 * time.Second

type AuthConfig interface {
	GetCSRFCookieName() string
	GetCSRFHeaderName() string
	GetMemoryTokenTTL() time.Duration
	GetSecureStorePath() string
	GetSecureStorePassphrase() string
}

type Auth struct {
	CSRFCookieName        string        `yaml:"csrf_cookie_name" env:"CSRF_COOKIE_NAME" env-default:"csrf_token"`
	CSRFHeaderName        string        `yaml:"csrf_header_name" env:"CSRF_HEADER_NAME" env-default:"X-CSRF-Token"`
	MemoryTokenTTL        time.Duration `yaml:"memory_token_ttl" env:"MEMORY_TOKEN_TTL" env-default:"60s"`
	SecureStorePath       string        `yaml:"secure_store_path" env:"SECURE_STORE_PATH" env-default:"./data/credentials.enc"`
	SecureStorePassphrase string        `yaml:"-" env:"SECURE_STORE_PASSPHRASE"`
}

var _ AuthConfig = Auth{}

func (a Auth) GetCSRFCookieName() string {
	return a.CSRFCookieName
}

func (a Auth) GetCSRFHeaderName() string {
	if a.CSRFHeaderName == "" {
		return "X-CSRF-Token"
	}
	return a.CSRFHeaderName
}

// GetMemoryTokenTTL is clamped to MaxMemoryTokenTTL.
func (a Auth) GetMemoryTokenTTL() time.Duration {
	if a.MemoryTokenTTL <= 0 || a.MemoryTokenTTL > MaxMemoryTokenTTL {
		return MaxMemoryTokenTTL
	}
	return a.MemoryTokenTTL
}

func (a Auth) GetSecureStorePath() string {
	return a.SecureStorePath
}

func (a Auth) GetSecureStorePassphrase() string {
	return a.SecureStorePassphrase
}
