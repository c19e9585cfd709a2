package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestOSM(nominatimURL, overpassURL string) *OpenStreetMap {
	o := NewOpenStreetMap(NewEmailDiscoverer(testLogger()), testLogger())
	o.nominatimURL = nominatimURL
	o.overpassURL = overpassURL
	unlimited(o.client)
	return o
}

func osmFixture(t *testing.T, elements []map[string]any) (*httptest.Server, *atomic.Value) {
	t.Helper()

	var lastQuery atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, []map[string]any{
			{"lat": "41.9028", "lon": "12.4964", "display_name": "Rome, Lazio, Italy"},
		})
	})
	mux.HandleFunc("/overpass", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		lastQuery.Store(form.Get("data"))
		writeBody(t, w, map[string]any{"elements": elements})
	})

	return httptest.NewServer(mux), &lastQuery
}

func TestOpenStreetMap_Search(t *testing.T) {
	elements := []map[string]any{
		{
			"type": "node", "lat": 41.91, "lon": 12.49,
			"tags": map[string]string{
				"name":             "Trattoria Da Mario",
				"addr:housenumber": "1",
				"addr:street":      "Via Roma",
				"addr:postcode":    "00184",
				"addr:city":        "Rome",
				"phone":            "+39 06 123456",
				"email":            "info@damario.it",
			},
		},
		{
			// Nameless nodes are discarded.
			"type": "node", "lat": 41.92, "lon": 12.48,
			"tags": map[string]string{"amenity": "restaurant"},
		},
		{
			// Only nodes are considered.
			"type": "way",
			"tags": map[string]string{"name": "Some Way"},
		},
		{
			"type": "node", "lat": 41.93, "lon": 12.47,
			"tags": map[string]string{"name": "Osteria Minimale"},
		},
	}
	srv, lastQuery := osmFixture(t, elements)
	defer srv.Close()

	o := newTestOSM(srv.URL, srv.URL+"/overpass")

	// A high minimum rating still passes everything: OSM has no ratings.
	records, err := o.Search(context.Background(), "Rome", "restaurant", 5, 4.9)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Trattoria Da Mario", first.Name)
	assert.Equal(t, "1 Via Roma, 00184", first.Address)
	assert.Equal(t, "Rome", first.City)
	assert.Equal(t, "Italy", first.Country)
	assert.Equal(t, "info@damario.it", first.Email)
	assert.Equal(t, "", first.Rating)
	assert.Equal(t, "", first.ReviewCount)
	assert.Equal(t, 41.91, first.Latitude)
	assert.Equal(t, "OpenStreetMap API", first.Source)

	// Missing addr tags yield an empty address and the Nominatim
	// display-name fallbacks for city and country.
	second := records[1]
	assert.Equal(t, "", second.Address)
	assert.Equal(t, "Rome", second.City)
	assert.Equal(t, "Italy", second.Country)

	query := lastQuery.Load().(string)
	assert.Contains(t, query, "node[amenity=restaurant]")
}

func TestOpenStreetMap_BoundingBox(t *testing.T) {
	srv, lastQuery := osmFixture(t, nil)
	defer srv.Close()

	o := newTestOSM(srv.URL, srv.URL+"/overpass")
	_, err := o.Search(context.Background(), "Rome", "bakery", 10, 3.5)
	require.NoError(t, err)

	query := lastQuery.Load().(string)
	assert.Contains(t, query, "node[shop=bakery]")

	// latOffset = 10/111 ~ 0.090090; south edge 41.9028 - 0.090090.
	assert.Contains(t, query, "41.812710")
	assert.Contains(t, query, "41.992890")
}

func TestOpenStreetMap_NoLocationResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		writeBody(t, w, []map[string]any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o := newTestOSM(srv.URL, srv.URL+"/overpass")
	records, err := o.Search(context.Background(), "Nowhereville", "bar", 5, 3.5)

	require.Error(t, err)
	assert.Empty(t, records)
}

func TestOpenStreetMap_RateLimiterSpacing(t *testing.T) {
	o := NewOpenStreetMap(NewEmailDiscoverer(testLogger()), testLogger())
	assert.Equal(t, rate.Every(osmSpacing), o.client.limiter.Limit())
}
