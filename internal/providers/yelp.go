package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

const (
	yelpBaseURL = "https://api.yelp.com/v3"

	// The free tier allows 5000 calls per day; 300ms spacing keeps well
	// under the per-second burst limits.
	yelpSpacing = 300 * time.Millisecond

	// Documented maximums of the search endpoint.
	yelpMaxRadiusMeters = 40000
	yelpMaxResults      = 1000
	yelpPageLimit       = 50
)

var yelpCategories = map[string]string{
	"hotel":      "hotels",
	"restaurant": "restaurants",
	"bar":        "bars",
	"cafe":       "cafes",
	"bakery":     "bakeries",
	"nightclub":  "nightlife",
}

// Yelp searches businesses through the Yelp Fusion API using
// offset-based pagination and a details call per candidate.
type Yelp struct {
	apiKey  string
	baseURL string
	client  *apiClient
	emails  *EmailDiscoverer
	logger  *slog.Logger
}

func NewYelp(apiKey string, emails *EmailDiscoverer, logger *slog.Logger) *Yelp {
	return &Yelp{
		apiKey:  apiKey,
		baseURL: yelpBaseURL,
		client:  newAPIClient(yelpSpacing),
		emails:  emails,
		logger:  logger,
	}
}

func (y *Yelp) Name() string { return "Yelp Fusion API" }

type yelpBusiness struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		City           string   `json:"city"`
		Country        string   `json:"country"`
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
}

type yelpSearchResponse struct {
	Businesses []yelpBusiness `json:"businesses"`
	Total      int            `json:"total"`
}

func (y *Yelp) Search(ctx context.Context, location, category string, radiusKM int, minRating float64) ([]types.Record, error) {
	radiusMeters := radiusKM * 1000
	if radiusMeters > yelpMaxRadiusMeters {
		radiusMeters = yelpMaxRadiusMeters
	}

	params := url.Values{
		"location":   {location},
		"categories": {yelpCategory(category)},
		"radius":     {strconv.Itoa(radiusMeters)},
		"limit":      {strconv.Itoa(yelpPageLimit)},
	}

	var records []types.Record
	offset := 0
	for {
		var page yelpSearchResponse
		if err := y.client.getJSON(ctx, y.baseURL+"/businesses/search", params, y.authHeader(), &page); err != nil {
			if offset == 0 {
				return nil, fmt.Errorf("yelp search: %w", err)
			}
			y.logger.Warn("stopping pagination", "error", err)
			break
		}

		records = append(records, y.collectPage(ctx, page.Businesses, category, minRating)...)

		offset += len(page.Businesses)
		if len(page.Businesses) == 0 || offset >= page.Total || offset >= yelpMaxResults {
			break
		}
		params.Set("offset", strconv.Itoa(offset))
	}

	return records, nil
}

// collectPage filters one search page by rating and fetches details per
// surviving candidate; a failed details call drops that one candidate.
func (y *Yelp) collectPage(ctx context.Context, businesses []yelpBusiness, category string, minRating float64) []types.Record {
	var records []types.Record
	for _, candidate := range businesses {
		if candidate.Rating < minRating {
			continue
		}
		if candidate.ID == "" {
			continue
		}

		// The details endpoint returns the same business shape with the
		// full field set populated.
		var business yelpBusiness
		if err := y.client.getJSON(ctx, y.baseURL+"/businesses/"+candidate.ID, nil, y.authHeader(), &business); err != nil {
			y.logger.Warn("failed to get business details", "business", candidate.Name, "error", err)
			continue
		}

		rating := business.Rating
		record := types.Record{
			Name:        business.Name,
			Category:    capitalize(category),
			Address:     joinNonEmpty(business.Location.DisplayAddress, ", "),
			City:        business.Location.City,
			Country:     business.Location.Country,
			Phone:       business.Phone,
			Website:     business.URL,
			Rating:      formatRating(&rating),
			ReviewCount: strconv.Itoa(business.ReviewCount),
			Latitude:    business.Coordinates.Latitude,
			Longitude:   business.Coordinates.Longitude,
			Source:      y.Name(),
		}
		if record.Website != "" {
			record.Email = y.emails.Discover(ctx, record.Website)
		}
		records = append(records, record)
	}
	return records
}

func (y *Yelp) authHeader() http.Header {
	return http.Header{
		"Authorization": {"Bearer " + y.apiKey},
		"Accept":        {"application/json"},
	}
}

func yelpCategory(category string) string {
	if c, ok := yelpCategories[lower(category)]; ok {
		return c
	}
	return lower(category)
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
