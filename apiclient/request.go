package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one logical API call.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. "/api/v1/auth/me".
	Path  string
	Query url.Values

	// Body is encoded as JSON. RawBody takes precedence and is sent as-is with ContentType.
	Body        any
	RawBody     []byte
	ContentType string

	Headers http.Header

	// SkipAuth disables refresh-on-401 entirely. Used by login, register and public endpoints.
	SkipAuth bool
	// SoftAuth still refreshes on 401 but a failed refresh doesn't fire the session-expired hook.
	// Used by the "am I logged in" probe.
	SoftAuth bool
}

// Response is a successful (2xx) response.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	NoContent bool
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r Request) validate() error {
	switch r.method() {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("[apiclient Request] unsupported method %q", r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("[apiclient Request] path must start with '/': %q", r.Path)
	}
	return nil
}

// payload encodes the body once so the retry after a refresh sends identical bytes.
func (r Request) payload() ([]byte, string, error) {
	if r.RawBody != nil {
		ct := r.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return r.RawBody, ct, nil
	}
	if r.Body == nil {
		return nil, jsonContentType, nil
	}
	data, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("[apiclient Request] failed to encode body: %w", err)
	}
	return data, jsonContentType, nil
}
