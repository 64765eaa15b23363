package properties_test

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/dealscope-client/apiclient"
	"github.com/jrsteele09/dealscope-client/apierror"
	"github.com/jrsteele09/dealscope-client/credentials"
	"github.com/jrsteele09/dealscope-client/internal/testbackend"
	"github.com/jrsteele09/dealscope-client/internal/utils"
	"github.com/jrsteele09/dealscope-client/properties"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var listings = map[string]properties.Property{
	"prop-1": {ID: "prop-1", Address: "12 Elm St", City: "Austin", State: "TX", Zip: "78701", Price: 420000, Beds: 3, Baths: 2, Sqft: 1650, PropertyType: "single_family"},
	"prop-2": {ID: "prop-2", Address: "40 Oak Ave", City: "Austin", State: "TX", Zip: "78702", Price: 315000, Beds: 2, Baths: 1, Sqft: 980, PropertyType: "condo"},
}

type fixture struct {
	backend *testbackend.Backend
	store   *credentials.MemoryBridge
	service *properties.Service

	mu    sync.Mutex
	saved map[string]bool
}

func setup(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend: testbackend.New(t),
		store:   credentials.NewMemoryBridge(time.Minute),
		saved:   make(map[string]bool),
	}
	r := f.backend.Router
	r.Get("/api/v1/properties/search", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("city") == "Nowhere" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		items := make([]properties.Property, 0, len(listings))
		for _, p := range listings {
			items = append(items, p)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		testbackend.WriteJSON(w, http.StatusOK, properties.SearchResult{Items: items, Total: len(items), Page: 1, PageSize: 20})
	}))
	r.Get("/api/v1/properties/saved", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []properties.Property{}
		for id := range f.saved {
			p := listings[id]
			p.Saved = true
			out = append(out, p)
		}
		testbackend.WriteJSON(w, http.StatusOK, out)
	}))
	r.Get("/api/v1/properties/{id}", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		p, ok := listings[chi.URLParam(r, "id")]
		if !ok {
			testbackend.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Property not found"})
			return
		}
		testbackend.WriteJSON(w, http.StatusOK, p)
	}))
	r.Post("/api/v1/properties/{id}/save", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.saved[chi.URLParam(r, "id")] = true
		f.mu.Unlock()
		testbackend.WriteJSON(w, http.StatusCreated, map[string]bool{"saved": true})
	}))
	r.Delete("/api/v1/properties/{id}/save", f.backend.Protected(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.saved, chi.URLParam(r, "id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	client, err := apiclient.New(apiclient.Options{
		BaseURL: f.backend.URL(),
		Timeout: 5 * time.Second,
		Store:   f.store,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	f.store.Set(&oauth2.Token{AccessToken: f.backend.IssueAccessToken(), TokenType: "Bearer"})
	f.service = properties.NewService(client)
	return f
}

func TestSearch(t *testing.T) {
	f := setup(t)

	res, err := f.service.Search(context.Background(), properties.SearchParams{
		Query:        "elm",
		City:         "Austin",
		MinPrice:     utils.Ptr(250000),
		Beds:         utils.Ptr(2.5),
		PropertyType: "single_family",
		PageSize:     utils.Ptr(20),
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, "prop-1", res.Items[0].ID)

	q, err := url.ParseQuery(f.backend.Requests("/api/v1/properties/search")[0].Query)
	require.NoError(t, err)
	require.Equal(t, url.Values{
		"q":             {"elm"},
		"city":          {"Austin"},
		"min_price":     {"250000"},
		"beds":          {"2.5"},
		"property_type": {"single_family"},
		"page_size":     {"20"},
	}, q)
}

func TestSearch_NoContentIsEmpty(t *testing.T) {
	f := setup(t)

	res, err := f.service.Search(context.Background(), properties.SearchParams{City: "Nowhere"})
	require.NoError(t, err)
	require.Empty(t, res.Items)
}

func TestGet(t *testing.T) {
	f := setup(t)

	p, err := f.service.Get(context.Background(), "prop-2")
	require.NoError(t, err)
	require.Equal(t, "condo", p.PropertyType)

	_, err = f.service.Get(context.Background(), "prop-404")
	require.Equal(t, http.StatusNotFound, apierror.Status(err))

	_, err = f.service.Get(context.Background(), "")
	require.ErrorIs(t, err, properties.ErrMissingID)
}

func TestSavedProperties(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	saved, err := f.service.ListSaved(ctx)
	require.NoError(t, err)
	require.Empty(t, saved)

	require.NoError(t, f.service.Save(ctx, "prop-1"))
	saved, err = f.service.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.True(t, saved[0].Saved)

	require.NoError(t, f.service.Unsave(ctx, "prop-1"))
	saved, err = f.service.ListSaved(ctx)
	require.NoError(t, err)
	require.Empty(t, saved)
}
