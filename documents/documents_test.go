package documents_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/documents"
	"github.com/jrsteele09/dealscope-client/internal/testbackend"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fixture struct {
	backend *testbackend.Backend
	client  *apiclient.Client
	service *documents.Service

	mu   sync.Mutex
	docs map[string]documents.Document
	// contents keeps the uploaded bytes by document id.
	contents map[string][]byte
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend:  testbackend.New(t),
		docs:     make(map[string]documents.Document),
		contents: make(map[string][]byte),
	}
	r := f.backend.Router
	r.Post("/api/v1/documents/upload", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			testbackend.WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			testbackend.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
				{"loc": []string{"body", "file"}, "msg": "field required"},
			}})
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		f.mu.Lock()
		id := "doc-" + string(rune('a'+len(f.docs)))
		doc := documents.Document{
			ID:           id,
			FileName:     header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
			Size:         int64(len(content)),
			PropertyID:   r.FormValue("property_id"),
			DocumentType: r.FormValue("document_type"),
			CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		}
		f.docs[id] = doc
		f.contents[id] = content
		f.mu.Unlock()
		testbackend.WriteJSON(w, http.StatusCreated, doc)
	}))
	r.Get("/api/v1/documents", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		items := []documents.Document{}
		for _, d := range f.docs {
			if p := r.URL.Query().Get("property_id"); p == "" || p == d.PropertyID {
				items = append(items, d)
			}
		}
		testbackend.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}))
	r.Get("/api/v1/documents/{id}", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		d, ok := f.docs[chi.URLParam(r, "id")]
		f.mu.Unlock()
		if !ok {
			testbackend.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Document not found"})
			return
		}
		testbackend.WriteJSON(w, http.StatusOK, d)
	}))
	r.Delete("/api/v1/documents/{id}", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.docs, chi.URLParam(r, "id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	store := credentials.NewMemoryBridge(time.Minute)
	store.Set(&oauth2.Token{AccessToken: f.backend.IssueAccessToken(), TokenType: "Bearer"})
	client, err := apiclient.New(apiclient.Options{BaseURL: f.backend.URL(), Store: store, Logger: zerolog.Nop()})
	require.NoError(t, err)
	f.client = client
	f.service = documents.NewService(client)
	return f
}

func TestUpload(t *testing.T) {
	f := setup(t)
	content := []byte("%PDF-1.4 inspection report")

	doc, err := f.service.Upload(context.Background(), documents.UploadRequest{
		FileName:     "reports/inspection.pdf",
		Content:      bytes.NewReader(content),
		PropertyID:   "prop-1",
		DocumentType: "inspection",
	})
	require.NoError(t, err)
	require.Equal(t, "inspection.pdf", doc.FileName)
	require.Equal(t, "application/pdf", doc.ContentType)
	require.Equal(t, int64(len(content)), doc.Size)
	require.Equal(t, "prop-1", doc.PropertyID)
	require.Equal(t, "inspection", doc.DocumentType)
	f.mu.Lock()
	require.Equal(t, content, f.contents[doc.ID])
	f.mu.Unlock()

	sent := f.backend.Requests("/api/v1/documents/upload")
	require.Len(t, sent, 1)
	require.True(t, strings.HasPrefix(sent[0].Header.Get("Content-Type"), "multipart/form-data; boundary="))
}

func TestUpload_RetriedAfterRefreshSendsSameBody(t *testing.T) {
	f := setup(t)
	_, err := apiclient.Send[map[string]any](context.Background(), f.client, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": testbackend.TestEmail, "password": testbackend.TestPassword}, apiclient.Request{SkipAuth: true})
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	_, err = f.service.Upload(context.Background(), documents.UploadRequest{FileName: "notes.txt", Content: strings.NewReader("roof replaced 2019")})
	require.NoError(t, err)
	require.Equal(t, int64(1), f.backend.RefreshCalls())

	sent := f.backend.Requests("/api/v1/documents/upload")
	require.Len(t, sent, 2)
	require.Equal(t, sent[0].Body, sent[1].Body)
	require.Equal(t, sent[0].Header.Get("Content-Type"), sent[1].Header.Get("Content-Type"))
}

func TestUpload_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.service.Upload(context.Background(), documents.UploadRequest{FileName: "a.pdf"})
	require.ErrorIs(t, err, documents.ErrMissingFile)

	_, err = f.service.Upload(context.Background(), documents.UploadRequest{
		FileName: "huge.bin",
		Content:  io.LimitReader(zeroReader{}, documents.MaxUploadBytes+1),
	})
	require.ErrorIs(t, err, documents.ErrTooLarge)
	require.Empty(t, f.backend.Requests("/api/v1/documents/upload"))
}

func TestListGetDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, p := range []string{"prop-1", "prop-2"} {
		_, err := f.service.Upload(ctx, documents.UploadRequest{FileName: "lease.txt", Content: strings.NewReader("lease"), PropertyID: p, DocumentType: "lease"})
		require.NoError(t, err)
	}

	all, err := f.service.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	onlyOne, err := f.service.List(ctx, "prop-2")
	require.NoError(t, err)
	require.Len(t, onlyOne, 1)

	doc, err := f.service.Get(ctx, onlyOne[0].ID)
	require.NoError(t, err)
	require.Equal(t, "prop-2", doc.PropertyID)
	require.True(t, strings.HasPrefix(doc.ContentType, "text/plain"))

	require.NoError(t, f.service.Delete(ctx, doc.ID))
	_, err = f.service.Get(ctx, doc.ID)
	require.Equal(t, http.StatusNotFound, apierror.Status(err))
	require.ErrorIs(t, f.service.Delete(ctx, ""), documents.ErrMissingID)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
