package credentials

import (
	"fmt"

	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Store hides where session credentials live. Implementations never return storage errors:
// a failed read is reported as "no token" and writes are best-effort.
type Store interface {
	Get() (*oauth2.Token, bool)
	Set(tok *oauth2.Token)
	Clear()
}

// NewStore returns the credential store for the configured platform.
func NewStore(cfg config.Config, logger zerolog.Logger) (Store, error) {
	switch cfg.GetPlatform() {
	case config.PlatformWeb:
		return NewMemoryBridge(cfg.GetMemoryTokenTTL()), nil
	case config.PlatformMobile:
		return NewSecureFileStore(SecureFileConfig{
			Path:       cfg.GetSecureStorePath(),
			Passphrase: cfg.GetSecureStorePassphrase(),
		}, logger)
	default:
		return nil, fmt.Errorf("[credentials NewStore] unsupported platform %q", cfg.GetPlatform())
	}
}

func clone(tok *oauth2.Token) *oauth2.Token {
	if tok == nil {
		return nil
	}
	cp := *tok
	return &cp
}
