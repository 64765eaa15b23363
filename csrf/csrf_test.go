package csrf_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/jrsteele09/dealscope-client/csrf"
	"github.com/stretchr/testify/require"
)

func TestShouldAttach(t *testing.T) {
	for _, m := range []string{"POST", "PUT", "PATCH", "DELETE", "delete"} {
		require.True(t, csrf.ShouldAttach(m), m)
	}
	for _, m := range []string{"GET", "HEAD", "OPTIONS"} {
		require.False(t, csrf.ShouldAttach(m), m)
	}
}

func TestApply_OnlyOnMutations(t *testing.T) {
	reader := csrf.StaticReader("abc123")

	del, err := http.NewRequest(http.MethodDelete, "https://api.dealscope.test/api/v1/properties/1", nil)
	require.NoError(t, err)
	csrf.Apply(del, reader, "")
	require.Equal(t, "abc123", del.Header.Get("X-CSRF-Token"))

	get, err := http.NewRequest(http.MethodGet, "https://api.dealscope.test/api/v1/properties/1", nil)
	require.NoError(t, err)
	get.Header.Set("X-CSRF-Token", "leaked")
	csrf.Apply(get, reader, "")
	_, present := get.Header["X-Csrf-Token"]
	require.False(t, present)
}

func TestApply_NoTokenLeavesHeaderUnset(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "https://api.dealscope.test/x", nil)
	require.NoError(t, err)
	csrf.Apply(req, csrf.StaticReader(""), "X-CSRF-Token")
	require.Empty(t, req.Header.Get("X-CSRF-Token"))
}

func TestJarReader_ReadsRotatedCookie(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, _ := url.Parse("https://api.dealscope.test")

	reader := csrf.JarReader{Jar: jar, URL: u, CookieName: "csrf_token"}
	_, ok := reader.Token()
	require.False(t, ok)

	jar.SetCookies(u, []*http.Cookie{{Name: "csrf_token", Value: "first", Path: "/"}})
	tok, ok := reader.Token()
	require.True(t, ok)
	require.Equal(t, "first", tok)

	jar.SetCookies(u, []*http.Cookie{{Name: "csrf_token", Value: "second", Path: "/"}})
	tok, _ = reader.Token()
	require.Equal(t, "second", tok)
}
