package token

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Response is the token payload returned by login, MFA login, registration and refresh.
// On the web platform the backend also sets the access token as an httpOnly cookie and may
// omit the refresh token from the body entirely.
type Response struct {
	// AccessToken is the short-lived bearer credential.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is only present for mobile clients; web clients get it as an httpOnly cookie.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in,omitempty"`

	// MFARequired is set by /auth/login when a second factor is needed. MFAToken is then
	// exchanged at /auth/login/mfa together with the TOTP code.
	MFARequired bool   `json:"mfa_required,omitempty"`
	MFAToken    string `json:"mfa_token,omitempty"`
}

// HasAccessToken reports whether the response carries a usable access token.
func (r *Response) HasAccessToken() bool {
	return r != nil && strings.TrimSpace(r.AccessToken) != ""
}

// OAuth2 converts the response to a session credential. Expiry is zero when the backend
// didn't send expires_in, which oauth2 treats as never expiring.
func (r *Response) OAuth2() *oauth2.Token {
	if !r.HasAccessToken() {
		return nil
	}
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    tokenType,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = NowTimeFunc().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}
