// Package documents uploads and manages files attached to properties (inspection reports, leases, etc.).
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/dealscope-client/apiclient"
)

const (
	basePath = "/api/v1/documents"

	// MaxUploadBytes matches the backend's request size limit.
	MaxUploadBytes = 25 << 20
)

var (
	ErrMissingFile = errors.New("file name and content are required")
	ErrTooLarge    = errors.New("document exceeds upload limit")
	ErrMissingID   = errors.New("document id is required")
)

type UploadRequest struct {
	FileName     string
	Content      io.Reader
	PropertyID   string
	DocumentType string
}

type Document struct {
	ID           string    `json:"id"`
	FileName     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	PropertyID   string    `json:"property_id,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	URL          string    `json:"url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type documentList struct {
	Items []Document `json:"items"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Upload sends the document as multipart/form-data. The body is buffered so the request can be replayed
// after a session refresh.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Document, error) {
	if req.FileName == "" || req.Content == nil {
		return nil, fmt.Errorf("[documents Upload] %w", ErrMissingFile)
	}
	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}
	return apiclient.DoJSON[Document](ctx, s.client, apiclient.Request{
		Method:      http.MethodPost,
		Path:        basePath + "/upload",
		RawBody:     body,
		ContentType: contentType,
	})
}

// List returns the user's documents, optionally only those attached to propertyID.
func (s *Service) List(ctx context.Context, propertyID string) ([]Document, error) {
	q := url.Values{}
	if propertyID != "" {
		q.Set("property_id", propertyID)
	}
	res, err := apiclient.Get[documentList](ctx, s.client, basePath, apiclient.Request{Query: q})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return nil, nil
		}
		return nil, err
	}
	return res.Items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	if id == "" {
		return nil, fmt.Errorf("[documents Get] %w", ErrMissingID)
	}
	return apiclient.Get[Document](ctx, s.client, basePath+"/"+url.PathEscape(id), apiclient.Request{})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("[documents Delete] %w", ErrMissingID)
	}
	_, err := s.client.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: basePath + "/" + url.PathEscape(id)})
	return err
}

func encodeUpload(req UploadRequest) ([]byte, string, error) {
	content, err := io.ReadAll(io.LimitReader(req.Content, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("[documents Upload] failed to read content: %w", err)
	}
	if len(content) > MaxUploadBytes {
		return nil, "", fmt.Errorf("[documents Upload] %w", ErrTooLarge)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	name := filepath.Base(req.FileName)
	partType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if partType == "" {
		partType = http.DetectContentType(content)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": name}))
	h.Set("Content-Type", partType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("[documents Upload] %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("[documents Upload] %w", err)
	}

	fields := [][2]string{{"property_id", req.PropertyID}, {"document_type", req.DocumentType}}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("[documents Upload] %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("[documents Upload] %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
