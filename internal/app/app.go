package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alex-user-go/bizfinder/internal/config"
	"github.com/alex-user-go/bizfinder/internal/export"
	"github.com/alex-user-go/bizfinder/internal/handler"
	"github.com/alex-user-go/bizfinder/internal/middleware"
	"github.com/alex-user-go/bizfinder/internal/obs"
	"github.com/alex-user-go/bizfinder/internal/providers"
	"github.com/alex-user-go/bizfinder/internal/search"
	"github.com/alex-user-go/bizfinder/internal/search/cache"
	"github.com/alex-user-go/bizfinder/internal/search/ratelimit"
)

// Run initializes and runs the application.
func Run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load(logger)

	metrics := obs.NewMetrics(logger)

	aggregator := search.NewAggregator(cfg.CategoryDelay, metrics, logger)

	searchCache := cache.NewCache(cfg.CacheTTL)
	defer searchCache.Close()

	limiter := ratelimit.New(cfg.SearchesPerMinute)
	defer limiter.Close()

	store := export.NewStore()

	// One provider instance per request keeps rate-limit state out of
	// concurrent searches; the email discoverer is stateless and shared.
	emails := providers.NewEmailDiscoverer(logger)
	selectProvider := func(source string) providers.Provider {
		return providers.Select(source, cfg.GoogleAPIKey, cfg.YelpAPIKey, emails, logger)
	}

	h := handler.New(aggregator, searchCache, limiter, store, metrics, selectProvider, cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.IndexHandler)
	mux.HandleFunc("GET /api/businesses", h.SearchHandler)
	mux.HandleFunc("POST /api/save", h.SaveHandler)
	mux.HandleFunc("GET /api/download/{filename}", h.DownloadHandler)
	mux.HandleFunc("GET /api/categories", h.CategoriesHandler)
	mux.HandleFunc("GET /api/locations/popular", h.PopularLocationsHandler)
	mux.HandleFunc("GET /healthz", obs.HealthHandler(logger))
	mux.HandleFunc("GET /metrics", metrics.MetricsHandler())

	wrappedHandler := middleware.Logging(logger)(mux)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     wrappedHandler,
		ReadTimeout: 10 * time.Second,
		// Searches run strictly sequential provider calls with explicit
		// delays and can take minutes.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
