package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort         int    `envconfig:"HTTP_PORT" default:"8080"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	RedisURL         string `envconfig:"REDIS_URL" default:"localhost:6379"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	TracingEnabled bool   `envconfig:"TRACING_ENABLED" default:"true"`
	OTLPEndpoint   string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	RedditBaseURL   string `envconfig:"REDDIT_BASE_URL" default:"https://www.reddit.com"`
	RedditUserAgent string `envconfig:"REDDIT_USER_AGENT" default:"ticker-pulse/1.0"`
	YahooBaseURL    string `envconfig:"YAHOO_BASE_URL" default:"https://query1.finance.yahoo.com"`

	FetchResultCap    int           `envconfig:"FETCH_RESULT_CAP" default:"1000"`
	FetchPageSize     int           `envconfig:"FETCH_PAGE_SIZE" default:"100"`
	FetchPacing       time.Duration `envconfig:"FETCH_PACING" default:"1s"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	FetchMaxAttempts  int           `envconfig:"FETCH_MAX_ATTEMPTS" default:"3"`
	FetchBackoffStart time.Duration `envconfig:"FETCH_BACKOFF_START" default:"2s"`

	SentimentPolicy string   `envconfig:"SENTIMENT_POLICY" default:"narrow"`
	TargetLanguage  string   `envconfig:"TARGET_LANGUAGE" default:"en"`
	MinWords        int      `envconfig:"MIN_WORDS" default:"50"`
	DefaultSources  []string `envconfig:"DEFAULT_SOURCES" default:"stocks,wallstreetbets,investing"`

	MarketCacheTTL time.Duration `envconfig:"MARKET_CACHE_TTL" default:"10m"`

	Watchlist     []string      `envconfig:"WATCHLIST"`
	WatchlistPoll time.Duration `envconfig:"WATCHLIST_POLL" default:"30m"`

	// Warnings collects fallbacks applied during Load so they can be
	// logged once the logger exists.
	Warnings []string `ignored:"true"`
}

// Load reads the environment (after .env has been applied by the caller)
// and normalizes out-of-range values back to their defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strings.TrimSpace(cfg.RedisURL) == "" {
		cfg.warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.DatabaseURL == "" {
		cfg.warn("DATABASE_URL not set, accounts will be disabled")
	}
	if cfg.TelegramBotToken == "" {
		cfg.warn("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.OpenAIAPIKey == "" {
		cfg.warn("OPENAI_API_KEY not set, post summaries will be disabled")
	}
	if cfg.JWTSecret == "" {
		cfg.warn("JWT_SECRET not set, search routes will not require a session")
	}

	cfg.SentimentPolicy = strings.ToLower(strings.TrimSpace(cfg.SentimentPolicy))
	if cfg.SentimentPolicy != "narrow" && cfg.SentimentPolicy != "wide" {
		cfg.warn(fmt.Sprintf("unsupported SENTIMENT_POLICY=%q, defaulting to narrow", cfg.SentimentPolicy))
		cfg.SentimentPolicy = "narrow"
	}

	cfg.TargetLanguage = strings.ToLower(strings.TrimSpace(cfg.TargetLanguage))
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "en"
	}

	if cfg.FetchPageSize <= 0 || cfg.FetchPageSize > 100 {
		cfg.warn(fmt.Sprintf("FETCH_PAGE_SIZE=%d out of range, using 100", cfg.FetchPageSize))
		cfg.FetchPageSize = 100
	}
	if cfg.FetchResultCap <= 0 {
		cfg.FetchResultCap = 1000
	}
	if cfg.FetchPacing < 0 {
		cfg.FetchPacing = time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	if cfg.FetchMaxAttempts <= 0 {
		cfg.FetchMaxAttempts = 1
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = 50
	}
	if cfg.WatchlistPoll <= 0 {
		cfg.WatchlistPoll = 30 * time.Minute
	}

	cfg.DefaultSources = normalizeList(cfg.DefaultSources, false)
	cfg.Watchlist = normalizeList(cfg.Watchlist, true)

	return cfg, nil
}

func (c *Config) warn(msg string) {
	c.Warnings = append(c.Warnings, msg)
}

func normalizeList(in []string, upper bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if upper {
			v = strings.ToUpper(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
