package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries runtime settings for the server and CLI.
type Config struct {
	Port          string
	GoogleAPIKey  string
	YelpAPIKey    string
	DefaultSource string
	CacheTTL      time.Duration
	SaveDir       string

	// SearchesPerMinute is the per-client-IP allowance on the search
	// endpoint.
	SearchesPerMinute int

	// CategoryDelay is the pause between per-category provider calls
	// during an "all" search.
	CategoryDelay time.Duration
}

// Load reads configuration from the environment, honoring a local .env
// file when present. Missing keys for paid providers are not an error;
// the free provider is substituted at search time.
func Load(logger *slog.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables directly")
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		GoogleAPIKey:      os.Getenv("GOOGLE_API_KEY"),
		YelpAPIKey:        os.Getenv("YELP_API_KEY"),
		DefaultSource:     getEnv("DEFAULT_API_SOURCE", "osm"),
		CacheTTL:          getDuration(logger, "CACHE_TTL", time.Hour),
		SaveDir:           getEnv("SAVE_DIR", "saved_files"),
		SearchesPerMinute: getInt(logger, "SEARCHES_PER_MINUTE", 10),
		CategoryDelay:     getDuration(logger, "CATEGORY_DELAY", 500*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(logger *slog.Logger, key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logger.Warn("ignoring invalid value", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getDuration(logger *slog.Logger, key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger.Warn("ignoring invalid value", "key", key, "value", value)
		return defaultValue
	}
	return d
}
