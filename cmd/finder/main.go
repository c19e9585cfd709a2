package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/alex-user-go/bizfinder/internal/config"
	"github.com/alex-user-go/bizfinder/internal/export"
	"github.com/alex-user-go/bizfinder/internal/obs"
	"github.com/alex-user-go/bizfinder/internal/providers"
	"github.com/alex-user-go/bizfinder/internal/search"
	"github.com/alex-user-go/bizfinder/internal/search/types"
)

// CLI defines the command-line flags for a one-shot search and export.
type CLI struct {
	Location  string  `help:"City or country to search in." default:"Italy"`
	Category  string  `help:"Business category, or \"all\"." default:"restaurant"`
	Radius    int     `help:"Search radius in kilometers (1-50)." default:"5"`
	MinRating float64 `help:"Minimum rating threshold (1-5)." default:"3.5"`
	Source    string  `help:"Data source." default:"osm" enum:"google,yelp,osm"`
	Output    string  `short:"o" help:"Output file; .xlsx writes an Excel workbook, anything else CSV." placeholder:"FILE"`
	Verbose   bool    `short:"v" help:"Enable debug logging."`
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("finder"),
		kong.Description("Search business listings across geo-data providers and export them to a file."),
	)
	kctx.FatalIfErrorf(run(context.Background(), cli))
}

func run(ctx context.Context, cli *CLI) error {
	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := search.ValidateParams(cli.Location, cli.Category, cli.Radius, cli.MinRating); err != nil {
		return err
	}

	cfg := config.Load(logger)

	provider := providers.Select(cli.Source, cfg.GoogleAPIKey, cfg.YelpAPIKey, providers.NewEmailDiscoverer(logger), logger)
	aggregator := search.NewAggregator(cfg.CategoryDelay, obs.NewMetrics(logger), logger)

	result := aggregator.Search(ctx, provider, cli.Location, cli.Category, cli.Radius, cli.MinRating)
	if len(result.Records) == 0 {
		return fmt.Errorf("no businesses found for %s %q in %q", result.Provider, cli.Category, cli.Location)
	}

	output := cli.Output
	if output == "" {
		output = fmt.Sprintf("business_results_%s.csv", time.Now().Format("20060102_150405"))
	}

	if err := writeOutput(output, result); err != nil {
		return err
	}

	fmt.Printf("found %d unique businesses via %s, wrote %s\n", len(result.Records), result.Provider, output)
	return nil
}

func writeOutput(path string, result *types.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var writeErr error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		writeErr = export.WriteXLSX(f, result.Records)
	} else {
		writeErr = export.WriteCSV(f, result.Records)
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	return writeErr
}
