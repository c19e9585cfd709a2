package providers

import (
	"context"
	"log/slog"

	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Provider is one external business data source. Implementations own
// their rate-limit state, so a fresh instance should be created per
// in-flight search.
type Provider interface {
	// Name identifies the source on the records it produces.
	Name() string

	// Search returns normalized records for the given criteria. A failed
	// top-level call yields an error and no records; failures on
	// individual candidates are skipped silently.
	Search(ctx context.Context, location, category string, radiusKM int, minRating float64) ([]types.Record, error)
}

// Select returns the provider for the requested source. A paid source
// without a configured credential falls back to the free
// OpenStreetMap provider rather than failing.
func Select(source, googleKey, yelpKey string, emails *EmailDiscoverer, logger *slog.Logger) Provider {
	switch {
	case source == "google" && googleKey != "":
		return NewGooglePlaces(googleKey, emails, logger)
	case source == "yelp" && yelpKey != "":
		return NewYelp(yelpKey, emails, logger)
	default:
		return NewOpenStreetMap(emails, logger)
	}
}
