package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type yelpFake struct {
	t *testing.T

	pages   []map[string]any
	details map[string]map[string]any

	searchCalls  atomic.Int64
	detailsCalls atomic.Int64
	offsets      []string
	failDetails  map[string]bool
	failPage     int
}

func (f *yelpFake) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/businesses/search", func(w http.ResponseWriter, r *http.Request) {
		call := int(f.searchCalls.Add(1)) - 1
		f.offsets = append(f.offsets, r.URL.Query().Get("offset"))
		if f.failPage > 0 && call+1 == f.failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if call >= len(f.pages) {
			writeBody(f.t, w, map[string]any{"businesses": []any{}, "total": 0})
			return
		}
		writeBody(f.t, w, f.pages[call])
	})
	mux.HandleFunc("/businesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.detailsCalls.Add(1)
		id := r.PathValue("id")
		if f.failDetails[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		details, ok := f.details[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeBody(f.t, w, details)
	})
	return mux
}

func newTestYelp(srvURL string) *Yelp {
	y := NewYelp("test-key", NewEmailDiscoverer(testLogger()), testLogger())
	y.baseURL = srvURL
	unlimited(y.client)
	return y
}

func yelpEntry(id, name string, rating float64) map[string]any {
	return map[string]any{"id": id, "name": name, "rating": rating}
}

func TestYelpSearch(t *testing.T) {
	fake := &yelpFake{
		t: t,
		pages: []map[string]any{
			{
				"businesses": []map[string]any{
					yelpEntry("b1", "Trattoria Roma", 4.5),
					yelpEntry("b2", "Scampi Shack", 2.0),
				},
				"total": 2,
			},
		},
		details: map[string]map[string]any{
			"b1": {
				"id":           "b1",
				"name":         "Trattoria Roma",
				"phone":        "+39 06 555 0100",
				"rating":       4.5,
				"review_count": 321,
				"coordinates":  map[string]any{"latitude": 41.89, "longitude": 12.49},
				"location": map[string]any{
					"city":            "Rome",
					"country":         "IT",
					"display_address": []string{"Via Appia 1", "", "00100 Rome"},
				},
			},
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	y := newTestYelp(srv.URL)
	records, err := y.Search(context.Background(), "Rome, Italy", "restaurant", 5, 3.5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The low-rated candidate is filtered before its details call.
	assert.Equal(t, int64(1), fake.detailsCalls.Load())

	r := records[0]
	assert.Equal(t, "Trattoria Roma", r.Name)
	assert.Equal(t, "Restaurant", r.Category)
	assert.Equal(t, "Via Appia 1, 00100 Rome", r.Address)
	assert.Equal(t, "Rome", r.City)
	assert.Equal(t, "IT", r.Country)
	assert.Equal(t, "+39 06 555 0100", r.Phone)
	assert.Equal(t, "4.5", r.Rating)
	assert.Equal(t, "321", r.ReviewCount)
	assert.Equal(t, 41.89, r.Latitude)
	assert.Equal(t, "Yelp Fusion API", r.Source)
}

func TestYelpSearchParams(t *testing.T) {
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery.Store(r.URL.Query())
		writeBody(t, w, map[string]any{"businesses": []any{}, "total": 0})
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		category   string
		radiusKM   int
		wantCat    string
		wantRadius string
	}{
		{"category mapping", "nightclub", 5, "nightlife", "5000"},
		{"radius cap", "restaurant", 45, "restaurants", "40000"},
		{"unknown category passthrough", "Pizzeria", 10, "pizzeria", "10000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYelp(srv.URL)
			_, err := y.Search(context.Background(), "Milan, Italy", tt.category, tt.radiusKM, 0)
			require.NoError(t, err)

			q := lastQuery.Load().(url.Values)
			assert.Equal(t, tt.wantCat, q.Get("categories"))
			assert.Equal(t, tt.wantRadius, q.Get("radius"))
			assert.Equal(t, "Milan, Italy", q.Get("location"))
			assert.Equal(t, "50", q.Get("limit"))
		})
	}
}

func TestYelpPagination(t *testing.T) {
	fake := &yelpFake{
		t: t,
		pages: []map[string]any{
			{
				"businesses": []map[string]any{
					yelpEntry("b1", "First", 4.0),
					yelpEntry("b2", "Second", 4.0),
				},
				"total": 3,
			},
			{
				"businesses": []map[string]any{
					yelpEntry("b3", "Third", 4.0),
				},
				"total": 3,
			},
		},
		details: map[string]map[string]any{
			"b1": yelpEntry("b1", "First", 4.0),
			"b2": yelpEntry("b2", "Second", 4.0),
			"b3": yelpEntry("b3", "Third", 4.0),
		},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	y := newTestYelp(srv.URL)
	records, err := y.Search(context.Background(), "Rome, Italy", "bar", 5, 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// Second request carries the offset of everything seen so far, and the
	// loop stops once the reported total is reached.
	assert.Equal(t, int64(2), fake.searchCalls.Load())
	assert.Equal(t, []string{"", "2"}, fake.offsets)
}

func TestYelpPaginationStopsOnFailure(t *testing.T) {
	fake := &yelpFake{
		t: t,
		pages: []map[string]any{
			{
				"businesses": []map[string]any{yelpEntry("b1", "First", 4.0)},
				"total":      5,
			},
		},
		details: map[string]map[string]any{
			"b1": yelpEntry("b1", "First", 4.0),
		},
		failPage: 2,
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	y := newTestYelp(srv.URL)
	records, err := y.Search(context.Background(), "Rome, Italy", "bar", 5, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestYelpSearchFailure(t *testing.T) {
	fake := &yelpFake{t: t, failPage: 1}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	y := newTestYelp(srv.URL)
	_, err := y.Search(context.Background(), "Rome, Italy", "bar", 5, 0)
	assert.Error(t, err)
}

func TestYelpDetailsFailure(t *testing.T) {
	fake := &yelpFake{
		t: t,
		pages: []map[string]any{
			{
				"businesses": []map[string]any{
					yelpEntry("b1", "Kept", 4.0),
					yelpEntry("b2", "Dropped", 4.0),
				},
				"total": 2,
			},
		},
		details: map[string]map[string]any{
			"b1": yelpEntry("b1", "Kept", 4.0),
		},
		failDetails: map[string]bool{"b2": true},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	y := newTestYelp(srv.URL)
	records, err := y.Search(context.Background(), "Rome, Italy", "cafe", 5, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Kept", records[0].Name)
}

func TestYelpAuthHeader(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeBody(t, w, map[string]any{"businesses": []any{}, "total": 0})
	}))
	defer srv.Close()

	y := newTestYelp(srv.URL)
	_, err := y.Search(context.Background(), "Rome, Italy", "bar", 5, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth.Load())
}

func TestYelpRateLimiterSpacing(t *testing.T) {
	y := NewYelp("key", NewEmailDiscoverer(testLogger()), testLogger())
	assert.Equal(t, rate.Every(yelpSpacing), y.client.limiter.Limit())
}
