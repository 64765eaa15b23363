// Package csrf reads the double-submit CSRF token the backend mirrors into a readable cookie.
package csrf

import (
	"net/http"
	"net/url"
	"strings"
)

// DefaultHeaderName is the request header the token is echoed in.
const DefaultHeaderName = "X-CSRF-Token"

// DefaultCookieName is the non-HttpOnly cookie the backend mirrors the token into.
const DefaultCookieName = "csrf_token"

// Reader returns the current CSRF token, if any.
type Reader interface {
	Token() (string, bool)
}

// JarReader looks the cookie up in the client's cookie jar on every call, so a token rotated
// by the server is picked up on the next request.
type JarReader struct {
	Jar        http.CookieJar
	URL        *url.URL
	CookieName string
}

var _ Reader = JarReader{}

func (r JarReader) Token() (string, bool) {
	if r.Jar == nil || r.URL == nil || r.CookieName == "" {
		return "", false
	}
	for _, c := range r.Jar.Cookies(r.URL) {
		if c.Name != r.CookieName {
			continue
		}
		v := strings.TrimSpace(c.Value)
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

// StaticReader always returns the same token. An empty value means no token.
type StaticReader string

func (r StaticReader) Token() (string, bool) {
	return string(r), r != ""
}

// ShouldAttach reports whether method mutates state and therefore needs the CSRF header.
func ShouldAttach(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// Apply sets the CSRF header on req when its method mutates state and a token is available.
// Any header already present for a safe method is removed.
func Apply(req *http.Request, reader Reader, headerName string) {
	if headerName == "" {
		headerName = DefaultHeaderName
	}
	if !ShouldAttach(req.Method) {
		req.Header.Del(headerName)
		return
	}
	if reader == nil {
		return
	}
	if tok, ok := reader.Token(); ok {
		req.Header.Set(headerName, tok)
	}
}
