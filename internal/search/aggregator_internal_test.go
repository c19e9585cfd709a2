package search

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alex-user-go/bizfinder/internal/obs"
	"github.com/alex-user-go/bizfinder/internal/search/types"
)

type countingProvider struct {
	calls int
}

func (p *countingProvider) Name() string { return "OpenStreetMap API" }

func (p *countingProvider) Search(context.Context, string, string, int, float64) ([]types.Record, error) {
	p.calls++
	return []types.Record{{Name: "Bar Centrale", Address: "Corso Italia 9"}}, nil
}

// An "all" search issues one provider call per category but runs the
// merger exactly once, over the full concatenation.
func TestSearch_MergesOncePerSearch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	for _, category := range []string{"all", "restaurant"} {
		t.Run(category, func(t *testing.T) {
			provider := &countingProvider{}
			agg := NewAggregator(0, obs.NewMetrics(logger), logger)

			merges := 0
			agg.dedupe = func(records []types.Record) []types.Record {
				merges++
				return Dedupe(records)
			}

			agg.Search(context.Background(), provider, "Rome", category, 5, 3.5)

			assert.Equal(t, 1, merges)
			if category == "all" {
				assert.Equal(t, len(Categories), provider.calls)
			} else {
				assert.Equal(t, 1, provider.calls)
			}
		})
	}
}
