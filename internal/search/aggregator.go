package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/alex-user-go/bizfinder/internal/obs"
	"github.com/alex-user-go/bizfinder/internal/providers"
	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// Categories is the fixed set expanded by an "all" search.
var Categories = []string{"hotel", "restaurant", "bar", "cafe", "bakery", "nightclub"}

// Aggregator drives a search against one provider, expanding the "all"
// pseudo-category and deduplicating the combined results exactly once.
type Aggregator struct {
	categoryDelay time.Duration
	dedupe        func([]types.Record) []types.Record
	metrics       *obs.Metrics
	logger        *slog.Logger
}

// NewAggregator creates a new Aggregator. categoryDelay is the pause
// between per-category provider calls during an "all" search, which
// keeps a burst of sequential searches under provider rate limits.
func NewAggregator(categoryDelay time.Duration, metrics *obs.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		categoryDelay: categoryDelay,
		dedupe:        Dedupe,
		metrics:       metrics,
		logger:        logger,
	}
}

// Search runs the aggregation pipeline: one provider call per category,
// strictly sequential, then a single dedup pass over the concatenation.
// Provider failures are logged and contribute no records; the returned
// result is never nil.
func (a *Aggregator) Search(ctx context.Context, p providers.Provider, location, category string, radiusKM int, minRating float64) *types.Result {
	var collected []types.Record

	if strings.EqualFold(category, "all") {
		for i, cat := range Categories {
			if i > 0 && !a.pause(ctx) {
				break
			}
			collected = append(collected, a.searchCategory(ctx, p, location, cat, radiusKM, minRating)...)
		}
	} else {
		collected = a.searchCategory(ctx, p, location, category, radiusKM, minRating)
	}

	// A single dedup pass also collapses duplicates inside one
	// category's batch.
	records := a.dedupe(collected)

	a.logger.Info("search complete",
		"provider", p.Name(),
		"location", location,
		"category", category,
		"found", len(collected),
		"unique", len(records),
	)

	return &types.Result{Records: records, Provider: p.Name()}
}

// pause waits out the inter-category delay; false means the request
// context ended and the remaining categories should be skipped.
func (a *Aggregator) pause(ctx context.Context) bool {
	select {
	case <-time.After(a.categoryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Aggregator) searchCategory(ctx context.Context, p providers.Provider, location, category string, radiusKM int, minRating float64) []types.Record {
	records, err := p.Search(ctx, location, category, radiusKM, minRating)
	if err != nil {
		a.metrics.IncProviderErrors()
		a.logger.Error("provider search failed",
			"provider", p.Name(),
			"location", location,
			"category", category,
			"error", err,
		)
		return nil
	}
	return records
}

// ValidateParams rejects out-of-range search criteria with a
// descriptive error before any network call is made.
func ValidateParams(location, category string, radiusKM int, minRating float64) error {
	if strings.TrimSpace(location) == "" {
		return errors.New("location is required")
	}
	if !strings.EqualFold(category, "all") && !slices.Contains(Categories, strings.ToLower(category)) {
		return fmt.Errorf("category must be one of: %s, or \"all\"", strings.Join(Categories, ", "))
	}
	if radiusKM < 1 || radiusKM > 50 {
		return errors.New("radius must be between 1 and 50 km")
	}
	if minRating < 1 || minRating > 5 {
		return errors.New("minimum rating must be between 1 and 5")
	}
	return nil
}
