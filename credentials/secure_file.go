package credentials

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/dealscope-client/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/oauth2"
)

var fileMagic = []byte("DSC1")

const saltLen = 16

// SecureFileConfig configures the encrypted on-device store. Zero KDF fields use the defaults
// (argon2id, 1 pass, 64 MiB, 4 lanes).
type SecureFileConfig struct {
	Path       string
	Passphrase string

	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
}

// SecureFileStore persists both tokens in an XChaCha20-Poly1305 sealed file. It has no TTL:
// the access token expiry is carried in the token itself.
type SecureFileStore struct {
	cfg    SecureFileConfig
	logger zerolog.Logger

	mu   sync.Mutex
	salt []byte
	key  []byte
}

var _ Store = (*SecureFileStore)(nil)

// storedToken is the plaintext inside the sealed file.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func NewSecureFileStore(cfg SecureFileConfig, logger zerolog.Logger) (*SecureFileStore, error) {
	if cfg.Path == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidConfig, "[credentials NewSecureFileStore] path is required")
	}
	if cfg.Passphrase == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidConfig, "[credentials NewSecureFileStore] passphrase is required")
	}
	if cfg.Argon2Time == 0 {
		cfg.Argon2Time = 1
	}
	if cfg.Argon2Memory == 0 {
		cfg.Argon2Memory = 64 * 1024
	}
	if cfg.Argon2Threads == 0 {
		cfg.Argon2Threads = 4
	}
	return &SecureFileStore{
		cfg:    cfg,
		logger: logger.With().Str("component", "secure_store").Logger(),
	}, nil
}

func (s *SecureFileStore) Get() (*oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Msg("Failed to read credentials, treating as signed out")
		}
		return nil, false
	}
	return tok, true
}

func (s *SecureFileStore) Set(tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(tok); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist credentials")
	}
}

func (s *SecureFileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("Failed to remove credentials file")
	}
}

func (s *SecureFileStore) read() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return nil, err
	}

	headerLen := len(fileMagic) + saltLen + chacha20poly1305.NonceSizeX
	if len(data) < headerLen+chacha20poly1305.Overhead || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "credentials file is corrupt")
	}
	salt := data[len(fileMagic) : len(fileMagic)+saltLen]
	nonce := data[len(fileMagic)+saltLen : headerLen]

	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, fmt.Errorf("[credentials read] %w", err)
	}
	plain, err := aead.Open(nil, nonce, data[headerLen:], fileMagic)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "credentials file could not be decrypted")
	}

	var st storedToken
	if err := json.Unmarshal(plain, &st); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStorage, "credentials payload is invalid")
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, apperrors.ErrNoToken
	}
	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}, nil
}

func (s *SecureFileStore) write(tok *oauth2.Token) error {
	refresh := tok.RefreshToken
	if refresh == "" {
		// Refresh responses may rotate only the access token.
		if existing, err := s.read(); err == nil {
			refresh = existing.RefreshToken
		}
	}
	plain, err := json.Marshal(storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return fmt.Errorf("[credentials write] failed to encode token: %w", err)
	}

	if s.salt == nil {
		salt := make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("[credentials write] failed to generate salt: %w", err)
		}
		s.salt = salt
		s.key = nil
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(s.salt))
	if err != nil {
		return fmt.Errorf("[credentials write] %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[credentials write] failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(fileMagic)+saltLen+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, fileMagic...)
	out = append(out, s.salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plain, fileMagic)

	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o700); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "failed to create credentials dir: %v", err)
	}
	tmp := s.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return apperrors.Wrapf(apperrors.ErrStorage, "failed to write credentials: %v", err)
	}
	if err := os.Rename(tmp, s.cfg.Path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.Wrapf(apperrors.ErrStorage, "failed to replace credentials: %v", err)
	}
	return nil
}

// keyFor derives the file key for salt, reusing the cached key when the salt is unchanged.
func (s *SecureFileStore) keyFor(salt []byte) []byte {
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = argon2.IDKey([]byte(s.cfg.Passphrase), s.salt, s.cfg.Argon2Time, s.cfg.Argon2Memory, s.cfg.Argon2Threads, chacha20poly1305.KeySize)
	return s.key
}
