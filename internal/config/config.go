package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the pipeline reads from the environment. The
// session secret is never persisted anywhere.
type Config struct {
	// SessionSecret is the steamLoginSecure cookie value used to
	// authenticate store and market requests.
	SessionSecret string

	// DatabaseURL is the Postgres DSN.
	DatabaseURL string

	// MaxPrice caps the search crawl at games cheaper than this many
	// major units.
	MaxPrice int

	// SearchPages is how many search pages one discover run fetches.
	SearchPages int

	// PageSize is the number of listings per search page.
	PageSize int

	// RequestInterval paces all outbound marketplace calls.
	RequestInterval time.Duration

	// QuoteAttempts bounds the multibuy quote retry loop.
	QuoteAttempts int

	// QuoteDelay is the fixed delay between quote retry attempts.
	QuoteDelay time.Duration

	// CleanupThreshold is the median_with_fee loss cutoff (minor units);
	// unowned games at or below it are culled.
	CleanupThreshold int64

	// WatchSchedule is the cron spec for watch mode.
	WatchSchedule string

	// CacheFile backs the card-list cache; empty disables caching.
	CacheFile string

	// CacheTTL bounds how long cached card lists are trusted.
	CacheTTL time.Duration
}

// Load reads configuration from the environment, after merging a .env file
// if one is present next to the binary.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SessionSecret:    os.Getenv("STEAM_LOGIN_SECURE"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MaxPrice:         envInt("SEARCH_MAX_PRICE", 10),
		SearchPages:      envInt("SEARCH_PAGES", 5),
		PageSize:         envInt("SEARCH_PAGE_SIZE", 50),
		RequestInterval:  envDuration("REQUEST_INTERVAL", 2*time.Second),
		QuoteAttempts:    envInt("QUOTE_ATTEMPTS", 5),
		QuoteDelay:       envDuration("QUOTE_DELAY", 2*time.Second),
		CleanupThreshold: int64(envInt("CLEANUP_THRESHOLD", -10)),
		WatchSchedule:    envString("WATCH_SCHEDULE", "@every 6h"),
		CacheFile:        envString("CARD_CACHE_FILE", "steamcards-cache.json"),
		CacheTTL:         envDuration("CARD_CACHE_TTL", 30*24*time.Hour),
	}

	if cfg.SearchPages <= 0 {
		return nil, fmt.Errorf("SEARCH_PAGES must be positive, got %d", cfg.SearchPages)
	}
	if cfg.QuoteAttempts <= 0 {
		return nil, fmt.Errorf("QUOTE_ATTEMPTS must be positive, got %d", cfg.QuoteAttempts)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
