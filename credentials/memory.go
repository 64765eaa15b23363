package credentials

import (
	"sync"
	"time"

	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/jrsteele09/dealscope-client/token"
	"golang.org/x/oauth2"
)

// MemoryBridge holds a copy of the access token for a short window after login or refresh.
// The authoritative credential on the web platform is the server-set httpOnly cookie; the bridge
// only covers the gap before that cookie is usable, so it never holds a refresh token.
type MemoryBridge struct {
	mu       sync.Mutex
	tok      *oauth2.Token
	storedAt time.Time
	ttl      time.Duration
	maxTTL   time.Duration
}

var _ Store = (*MemoryBridge)(nil)

// NewMemoryBridge creates a bridge whose entries expire after ttl, never more than 60 seconds.
func NewMemoryBridge(ttl time.Duration) *MemoryBridge {
	if ttl <= 0 || ttl > config.MaxMemoryTokenTTL {
		ttl = config.MaxMemoryTokenTTL
	}
	return &MemoryBridge{maxTTL: ttl}
}

// Set overwrites any previous token. Access tokens that are JWTs expiring sooner than the
// bridge TTL are kept only until their own exp. The stored-at time and the exp check share
// token.NowTimeFunc.
func (b *MemoryBridge) Set(tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tok = &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}
	b.storedAt = token.NowTimeFunc()
	b.ttl = token.Lifetime(tok.AccessToken, b.maxTTL)
}

// Get returns the token while it is younger than the TTL. Expired entries are cleared.
func (b *MemoryBridge) Get() (*oauth2.Token, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tok == nil {
		return nil, false
	}
	if token.NowTimeFunc().Sub(b.storedAt) >= b.ttl {
		b.tok = nil
		return nil, false
	}
	return clone(b.tok), true
}

func (b *MemoryBridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tok = nil
}
