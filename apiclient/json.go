package apiclient

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/jrsteele09/dealscope-client/apierror"
	apperrors "github.com/jrsteele09/dealscope-client/internal/errors"
)

// ErrNoContent is returned by the JSON helpers for 204 responses.
var ErrNoContent = apperrors.ErrNoContent

// DoJSON performs req and decodes the body into T.
func DoJSON[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return Decode[T](resp)
}

// Decode reads a JSON body. A 204 yields ErrNoContent rather than a parse failure.
func Decode[T any](resp *Response) (*T, error) {
	if resp.NoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, ErrNoContent
	}
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, apierror.NewMalformed(resp.Status, err)
	}
	return &out, nil
}

// Get is DoJSON for a GET request.
func Get[T any](ctx context.Context, c *Client, path string, req Request) (*T, error) {
	req.Method = "GET"
	req.Path = path
	return DoJSON[T](ctx, c, req)
}

// Send is DoJSON for a mutating request with a JSON body.
func Send[T any](ctx context.Context, c *Client, method, path string, body any, req Request) (*T, error) {
	req.Method = method
	req.Path = path
	req.Body = body
	return DoJSON[T](ctx, c, req)
}

// IsNoContent reports whether err came from decoding an empty response.
func IsNoContent(err error) bool {
	return apperrors.Is(err, ErrNoContent)
}
