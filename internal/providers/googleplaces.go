package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

const (
	googleBaseURL = "https://maps.googleapis.com/maps/api"

	// The documented quota is 50 req/s; 10 req/s leaves a safety margin.
	googleSpacing = 100 * time.Millisecond

	// A next_page_token is not valid immediately after it is issued.
	googlePageCooldown = 2 * time.Second
)

var googleCategories = map[string]string{
	"hotel":      "lodging",
	"restaurant": "restaurant",
	"bar":        "bar",
	"cafe":       "cafe",
	"bakery":     "bakery",
	"nightclub":  "night_club",
}

// GooglePlaces searches businesses through the Google Places API:
// geocode the location, run a nearby search around it, then fetch
// details per surviving candidate.
type GooglePlaces struct {
	apiKey       string
	baseURL      string
	pageCooldown time.Duration
	client       *apiClient
	emails       *EmailDiscoverer
	logger       *slog.Logger
}

func NewGooglePlaces(apiKey string, emails *EmailDiscoverer, logger *slog.Logger) *GooglePlaces {
	return &GooglePlaces{
		apiKey:       apiKey,
		baseURL:      googleBaseURL,
		pageCooldown: googlePageCooldown,
		client:       newAPIClient(googleSpacing),
		emails:       emails,
		logger:       logger,
	}
}

func (g *GooglePlaces) Name() string { return "Google Places API" }

type googleLatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleGeometry struct {
	Location googleLatLng `json:"location"`
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry googleGeometry `json:"geometry"`
	} `json:"results"`
}

type googleNearbyResponse struct {
	Status        string `json:"status"`
	ErrorMessage  string `json:"error_message"`
	NextPageToken string `json:"next_page_token"`
	Results       []struct {
		PlaceID string   `json:"place_id"`
		Name    string   `json:"name"`
		Rating  *float64 `json:"rating"`
	} `json:"results"`
}

type googleDetailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		Name              string         `json:"name"`
		FormattedAddress  string         `json:"formatted_address"`
		FormattedPhone    string         `json:"formatted_phone_number"`
		Website           string         `json:"website"`
		Rating            *float64       `json:"rating"`
		UserRatingsTotal  *int           `json:"user_ratings_total"`
		Geometry          googleGeometry `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"result"`
}

func (g *GooglePlaces) Search(ctx context.Context, location, category string, radiusKM int, minRating float64) ([]types.Record, error) {
	point, err := g.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", point.Lat, point.Lng)},
		"radius":   {strconv.Itoa(radiusKM * 1000)},
		"type":     {googleCategory(category)},
		"key":      {g.apiKey},
	}

	var records []types.Record
	for {
		var page googleNearbyResponse
		err := g.client.getJSON(ctx, g.baseURL+"/place/nearbysearch/json", params, nil, &page)
		if err == nil && page.Status != "OK" {
			err = fmt.Errorf("places search failed: %s", statusError(page.Status, page.ErrorMessage))
		}
		if err != nil {
			// The first page is the search itself; a later page only
			// truncates pagination.
			if len(records) == 0 {
				return nil, err
			}
			g.logger.Warn("stopping pagination", "error", err)
			break
		}

		records = append(records, g.collectPage(ctx, &page, category, minRating)...)

		if page.NextPageToken == "" {
			break
		}
		select {
		case <-time.After(g.pageCooldown):
		case <-ctx.Done():
			return records, nil
		}
		params = url.Values{
			"pagetoken": {page.NextPageToken},
			"key":       {g.apiKey},
		}
	}

	return records, nil
}

func (g *GooglePlaces) geocode(ctx context.Context, location string) (googleLatLng, error) {
	params := url.Values{
		"address": {location},
		"key":     {g.apiKey},
	}

	var geo googleGeocodeResponse
	if err := g.client.getJSON(ctx, g.baseURL+"/geocode/json", params, nil, &geo); err != nil {
		return googleLatLng{}, fmt.Errorf("geocoding %q: %w", location, err)
	}
	if geo.Status != "OK" || len(geo.Results) == 0 {
		return googleLatLng{}, fmt.Errorf("geocoding failed for %q: %s", location, statusError(geo.Status, geo.ErrorMessage))
	}
	return geo.Results[0].Geometry.Location, nil
}

// collectPage turns one nearby-search page into records. Candidates
// below the rating threshold are skipped before the details call to
// save quota; a failed details call drops that one candidate.
func (g *GooglePlaces) collectPage(ctx context.Context, page *googleNearbyResponse, category string, minRating float64) []types.Record {
	var records []types.Record
	for _, place := range page.Results {
		if place.Rating != nil && *place.Rating < minRating {
			continue
		}

		var details googleDetailsResponse
		params := url.Values{
			"place_id": {place.PlaceID},
			"fields":   {"name,formatted_address,formatted_phone_number,website,rating,user_ratings_total,geometry,address_components"},
			"key":      {g.apiKey},
		}
		err := g.client.getJSON(ctx, g.baseURL+"/place/details/json", params, nil, &details)
		if err == nil && details.Status != "OK" {
			err = fmt.Errorf("%s", statusError(details.Status, details.ErrorMessage))
		}
		if err != nil {
			g.logger.Warn("failed to get place details", "place", place.Name, "error", err)
			continue
		}

		d := details.Result
		var city, country string
		for _, component := range d.AddressComponents {
			for _, t := range component.Types {
				switch t {
				case "locality":
					city = component.LongName
				case "country":
					country = component.LongName
				}
			}
		}

		record := types.Record{
			Name:        d.Name,
			Category:    capitalize(category),
			Address:     d.FormattedAddress,
			City:        city,
			Country:     country,
			Phone:       d.FormattedPhone,
			Website:     d.Website,
			Rating:      formatRating(d.Rating),
			ReviewCount: formatCount(d.UserRatingsTotal),
			Latitude:    d.Geometry.Location.Lat,
			Longitude:   d.Geometry.Location.Lng,
			Source:      g.Name(),
		}
		if record.Website != "" {
			record.Email = g.emails.Discover(ctx, record.Website)
		}
		records = append(records, record)
	}
	return records
}

func googleCategory(category string) string {
	if t, ok := googleCategories[lower(category)]; ok {
		return t
	}
	return lower(category)
}

func statusError(status, message string) string {
	if message == "" {
		return status
	}
	return message
}
