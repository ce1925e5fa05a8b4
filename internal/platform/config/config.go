package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StorageBackend string
	MigrationsPath string

	// Source
	SourceBaseURL       string
	SourceTimeout       time.Duration
	SourceFormat        string // html or xml, for daily documents
	SourceRetryAttempts int
	SourceRetryBackoff  time.Duration

	// Ingestion
	Currencies      []domain.CurrencyCode
	RangeStrategy   domain.RangeStrategy
	ContinueOnError bool

	// Scheduler
	ScheduleAt       string // HH:MM
	ScheduleLocation *time.Location

	// Boundaries and side channels
	TelegramBotToken string
	RedisURL         string
	CacheTTL         time.Duration
	KafkaBrokers     []string
	KafkaTopic       string
	RateLimit        string // ulule formatted, e.g. 60-M
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", true)
	viper.SetDefault("STORAGE_BACKEND", StoragePostgres)
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("SOURCE_BASE_URL", "https://www.cbr.ru")
	viper.SetDefault("SOURCE_TIMEOUT", "20s")
	viper.SetDefault("SOURCE_FORMAT", "html")
	viper.SetDefault("SOURCE_RETRY_ATTEMPTS", 3)
	viper.SetDefault("SOURCE_RETRY_BACKOFF", "2s")
	viper.SetDefault("CURRENCIES", "USD,EUR")
	viper.SetDefault("RANGE_STRATEGY", string(domain.RangeDaily))
	viper.SetDefault("CONTINUE_ON_ERROR", false)
	viper.SetDefault("SCHEDULE_AT", "12:00")
	viper.SetDefault("SCHEDULE_TZ", "Europe/Moscow")
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL", "24h")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "cbr.rates.ingested")
	viper.SetDefault("RATE_LIMIT", "60-M")

	// Environment variables override both defaults and .env values.
	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:      viper.GetString("PGSQL_URL"),
		Port:             viper.GetString("PORT"),
		IsProduction:     viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:    viper.GetBool("ENABLE_DB_CHECK"),
		StorageBackend:   strings.ToLower(viper.GetString("STORAGE_BACKEND")),
		MigrationsPath:   viper.GetString("MIGRATIONS_PATH"),
		SourceBaseURL:    viper.GetString("SOURCE_BASE_URL"),
		SourceFormat:     strings.ToLower(viper.GetString("SOURCE_FORMAT")),
		RangeStrategy:    domain.RangeStrategy(strings.ToLower(viper.GetString("RANGE_STRATEGY"))),
		ContinueOnError:  viper.GetBool("CONTINUE_ON_ERROR"),
		ScheduleAt:       viper.GetString("SCHEDULE_AT"),
		TelegramBotToken: viper.GetString("TELEGRAM_BOT_TOKEN"),
		RedisURL:         viper.GetString("REDIS_URL"),
		KafkaBrokers:     splitList(viper.GetString("KAFKA_BROKERS")),
		KafkaTopic:       viper.GetString("KAFKA_TOPIC"),
		RateLimit:        viper.GetString("RATE_LIMIT"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		slog.Warn("PORT not set, using default", slog.String("port", cfg.Port))
	}

	cfg.SourceTimeout = durationOrDefault("SOURCE_TIMEOUT", 20*time.Second)
	cfg.SourceRetryBackoff = durationOrDefault("SOURCE_RETRY_BACKOFF", 2*time.Second)
	cfg.CacheTTL = durationOrDefault("CACHE_TTL", 24*time.Hour)

	cfg.SourceRetryAttempts = viper.GetInt("SOURCE_RETRY_ATTEMPTS")
	if cfg.SourceRetryAttempts < 1 {
		slog.Warn("SOURCE_RETRY_ATTEMPTS must be at least 1, using 1", slog.Int("value", cfg.SourceRetryAttempts))
		cfg.SourceRetryAttempts = 1
	}

	currencies, err := domain.ParseCurrencyList(viper.GetString("CURRENCIES"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCIES: %w", err)
	}
	cfg.Currencies = currencies

	switch cfg.RangeStrategy {
	case domain.RangeDaily, domain.RangePeriod:
	default:
		return nil, fmt.Errorf("invalid RANGE_STRATEGY %q: expected %s or %s", cfg.RangeStrategy, domain.RangeDaily, domain.RangePeriod)
	}

	switch cfg.SourceFormat {
	case "html", "xml":
	default:
		return nil, fmt.Errorf("invalid SOURCE_FORMAT %q: expected html or xml", cfg.SourceFormat)
	}

	switch cfg.StorageBackend {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			slog.Warn("PGSQL_URL environment variable not set")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: expected %s or %s", cfg.StorageBackend, StoragePostgres, StorageMemory)
	}

	if _, err := time.Parse("15:04", cfg.ScheduleAt); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_AT %q: expected HH:MM", cfg.ScheduleAt)
	}
	loc, err := time.LoadLocation(viper.GetString("SCHEDULE_TZ"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TZ: %w", err)
	}
	cfg.ScheduleLocation = loc

	return cfg, nil
}

func durationOrDefault(key string, def time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			slog.Warn("invalid duration, using default", slog.String("key", key), slog.String("value", raw), slog.Duration("default", def))
		}
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
