package providers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

const (
	nominatimBaseURL = "https://nominatim.openstreetmap.org"
	overpassBaseURL  = "https://overpass-api.de/api/interpreter"

	// Nominatim's usage policy allows at most one request per second.
	osmSpacing = time.Second

	// 1 degree of latitude is approximately 111 km.
	kmPerDegree = 111.0
)

var osmCategories = map[string]string{
	"hotel":      "tourism=hotel",
	"restaurant": "amenity=restaurant",
	"bar":        "amenity=bar",
	"cafe":       "amenity=cafe",
	"bakery":     "shop=bakery",
	"nightclub":  "amenity=nightclub",
}

// OpenStreetMap is the free provider: Nominatim resolves the location
// to a point and Overpass returns matching nodes inside a bounding box
// derived from the radius. OSM carries no ratings, so the minimum
// rating criterion is accepted but never applied.
type OpenStreetMap struct {
	nominatimURL string
	overpassURL  string
	client       *apiClient
	emails       *EmailDiscoverer
	logger       *slog.Logger
}

func NewOpenStreetMap(emails *EmailDiscoverer, logger *slog.Logger) *OpenStreetMap {
	return &OpenStreetMap{
		nominatimURL: nominatimBaseURL,
		overpassURL:  overpassBaseURL,
		client:       newAPIClient(osmSpacing),
		emails:       emails,
		logger:       logger,
	}
}

func (o *OpenStreetMap) Name() string { return "OpenStreetMap API" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

func (o *OpenStreetMap) Search(ctx context.Context, location, category string, radiusKM int, _ float64) ([]types.Record, error) {
	place, err := o.resolveLocation(ctx, location)
	if err != nil {
		return nil, err
	}

	lat, err1 := strconv.ParseFloat(place.Lat, 64)
	lon, err2 := strconv.ParseFloat(place.Lon, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("bad coordinates for %q: lat=%q lon=%q", location, place.Lat, place.Lon)
	}

	latOffset := float64(radiusKM) / kmPerDegree
	lonOffset := float64(radiusKM) / (kmPerDegree * math.Cos(lat*math.Pi/180))

	query := fmt.Sprintf("[out:json];\nnode[%s](%f,%f,%f,%f);\nout body;",
		osmCategory(category),
		lat-latOffset, lon-lonOffset, lat+latOffset, lon+lonOffset)

	var result overpassResponse
	if err := o.client.postForm(ctx, o.overpassURL, url.Values{"data": {query}}, &result); err != nil {
		return nil, fmt.Errorf("overpass query: %w", err)
	}

	var records []types.Record
	for _, element := range result.Elements {
		if element.Type != "node" {
			continue
		}
		tags := element.Tags
		if tags["name"] == "" {
			continue
		}

		record := types.Record{
			Name:      tags["name"],
			Category:  capitalize(category),
			Address:   assembleAddress(tags),
			City:      firstNonEmpty(tags["addr:city"], displayNameCity(place.DisplayName)),
			Country:   firstNonEmpty(tags["addr:country"], displayNameCountry(place.DisplayName)),
			Phone:     tags["phone"],
			Email:     tags["email"],
			Website:   tags["website"],
			Latitude:  element.Lat,
			Longitude: element.Lon,
			Source:    o.Name(),
		}
		if record.Website != "" && record.Email == "" {
			record.Email = o.emails.Discover(ctx, record.Website)
		}
		records = append(records, record)
	}

	return records, nil
}

// resolveLocation asks Nominatim for the location and uses the first
// result only.
func (o *OpenStreetMap) resolveLocation(ctx context.Context, location string) (*nominatimPlace, error) {
	params := url.Values{
		"q":      {location},
		"format": {"json"},
		"limit":  {"1"},
	}
	header := http.Header{
		"User-Agent": {"HospitalityBusinessFinder/1.0"},
		"Accept":     {"application/json"},
	}

	var places []nominatimPlace
	if err := o.client.getJSON(ctx, o.nominatimURL+"/search", params, header, &places); err != nil {
		return nil, fmt.Errorf("location search for %q: %w", location, err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("no results found for location %q", location)
	}
	return &places[0], nil
}

// assembleAddress builds a best-effort street address from optional
// addr tags; empty when the node carries none.
func assembleAddress(tags map[string]string) string {
	var parts []string
	switch {
	case tags["addr:housenumber"] != "" && tags["addr:street"] != "":
		parts = append(parts, tags["addr:housenumber"]+" "+tags["addr:street"])
	case tags["addr:street"] != "":
		parts = append(parts, tags["addr:street"])
	}
	if tags["addr:postcode"] != "" {
		parts = append(parts, tags["addr:postcode"])
	}
	return strings.Join(parts, ", ")
}

func osmCategory(category string) string {
	if tag, ok := osmCategories[lower(category)]; ok {
		return tag
	}
	return "amenity=" + lower(category)
}

func displayNameCity(displayName string) string {
	segments := strings.Split(displayName, ",")
	return strings.TrimSpace(segments[0])
}

func displayNameCountry(displayName string) string {
	segments := strings.Split(displayName, ",")
	return strings.TrimSpace(segments[len(segments)-1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
