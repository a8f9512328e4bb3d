package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "amlcore/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel string
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	AML      AMLConfig
}

// RedisConfig configures the screening result cache. An empty URL selects
// the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures risk profile, SAR and ledger persistence. An
// empty URL selects the in-memory stores.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

// KafkaConfig configures integration event publishing. No brokers selects
// the in-memory recorder.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// AMLConfig holds the compliance tunables.
type AMLConfig struct {
	MatchThreshold    float64
	ScreeningCacheTTL time.Duration
	SARDeadline       time.Duration
	HighRiskZones     []string
	WatchlistFile     string
	ApproachingDays   int
	HighRiskLimit     int
	ScreeningLimit    RateLimitConfig
}

// RateLimitConfig bounds live screenings per analyst. A zero limit disables
// the throttle.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// ScreeningCacheTTL is the retention for cached screening results.
var ScreeningCacheTTL = 24 * time.Hour

// SARFilingDeadline is the statutory window between SAR creation and filing.
var SARFilingDeadline = 30 * 24 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:     envString("AML_ADDR", ":8080"),
		LogLevel: envString("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			RunMigrations:   envString("DATABASE_RUN_MIGRATIONS", "true") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:  pkgstrings.SplitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:    envString("KAFKA_TOPIC", "aml.events"),
			ClientID: envString("KAFKA_CLIENT_ID", "amlcore"),
		},
		AML: AMLConfig{
			MatchThreshold:    envFloat("AML_MATCH_THRESHOLD", 0.85),
			ScreeningCacheTTL: envDuration("AML_SCREENING_CACHE_TTL", ScreeningCacheTTL),
			SARDeadline:       time.Duration(envInt("AML_SAR_DEADLINE_DAYS", 30)) * 24 * time.Hour,
			HighRiskZones:     pkgstrings.DedupeAndTrimLower(strings.Split(envString("AML_HIGH_RISK_ZONES", "external,unverified"), ",")),
			WatchlistFile:     os.Getenv("AML_WATCHLIST_FILE"),
			ApproachingDays:   envInt("AML_SAR_APPROACHING_DAYS", 3),
			HighRiskLimit:     envInt("AML_HIGH_RISK_LIMIT", 100),
			ScreeningLimit: RateLimitConfig{
				Limit:  envInt("AML_SCREENING_RATE_LIMIT", 120),
				Window: envDuration("AML_SCREENING_RATE_WINDOW", time.Minute),
			},
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
