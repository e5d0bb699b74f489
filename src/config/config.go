package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration

	Symbol           string
	PriceScale       int32
	TradeHistorySize int
	DefaultActorID   string

	LogLevel  string
	LogFile   string
	LogFormat string

	AuditFile         string
	AuditKafkaBrokers []string
	AuditKafkaTopic   string
	AuditKafkaQueue   int

	RateLimitDisabled     bool
	RateLimitMax          int
	RateLimitWindow       time.Duration
	MaxConcurrentRequests int64
	MaintenanceMode       bool
	RequestLogging        bool

	OrderBookDefaultDepth int
	OrderBookMaxDepth     int
	MaxLatencySamples     int
}

func Default() *Config {
	return &Config{
		Port:                  ":8080",
		ShutdownTimeout:       10 * time.Second,
		Symbol:                "DEFAULT",
		PriceScale:            2,
		TradeHistorySize:      100,
		DefaultActorID:        "anonymous",
		LogLevel:              "info",
		AuditFile:             "audit.log",
		AuditKafkaTopic:       "matching.audit",
		AuditKafkaQueue:       4096,
		RateLimitMax:          100,
		RateLimitWindow:       time.Second,
		RequestLogging:        true,
		OrderBookDefaultDepth: 10,
		OrderBookMaxDepth:     1000,
		MaxLatencySamples:     10000,
	}
}

// Load reads an optional .env file and then the process environment.
// Unparseable values keep their defaults.
func Load(envFiles ...string) *Config {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load env file")
	}

	cfg := Default()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.Symbol = envString("SYMBOL", cfg.Symbol)
	cfg.PriceScale = int32(envInt("PRICE_SCALE", int(cfg.PriceScale), 0))
	cfg.TradeHistorySize = envInt("TRADE_HISTORY_SIZE", cfg.TradeHistorySize, 1)
	cfg.DefaultActorID = envString("DEFAULT_ACTOR_ID", cfg.DefaultActorID)

	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envString("LOG_FILE", cfg.LogFile)
	cfg.LogFormat = envString("LOG_FORMAT", cfg.LogFormat)

	cfg.AuditFile = envString("AUDIT_FILE", cfg.AuditFile)
	if brokers := os.Getenv("AUDIT_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.AuditKafkaBrokers = append(cfg.AuditKafkaBrokers, b)
			}
		}
	}
	cfg.AuditKafkaTopic = envString("AUDIT_KAFKA_TOPIC", cfg.AuditKafkaTopic)
	cfg.AuditKafkaQueue = envInt("AUDIT_KAFKA_QUEUE_SIZE", cfg.AuditKafkaQueue, 1)

	cfg.RateLimitDisabled = os.Getenv("RATE_LIMIT_DISABLED") == "1"
	cfg.RateLimitMax = envInt("RATE_LIMIT_MAX", cfg.RateLimitMax, 1)
	cfg.RateLimitWindow = envDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow)
	cfg.MaxConcurrentRequests = int64(envInt("MAX_CONCURRENT_REQUESTS", int(cfg.MaxConcurrentRequests), 1))
	cfg.MaintenanceMode = os.Getenv("MAINTENANCE_MODE") == "1"
	cfg.RequestLogging = os.Getenv("REQUEST_LOGGING_DISABLED") != "1"

	cfg.OrderBookDefaultDepth = envInt("ORDERBOOK_DEFAULT_DEPTH", cfg.OrderBookDefaultDepth, 1)
	cfg.OrderBookMaxDepth = envInt("ORDERBOOK_MAX_DEPTH", cfg.OrderBookMaxDepth, 1)
	cfg.MaxLatencySamples = envInt("METRICS_MAX_LATENCIES", cfg.MaxLatencySamples, 1)

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback, minimum int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < minimum {
		log.Warn().
			Str("key", key).
			Str("value", raw).
			Int("default", fallback).
			Msg("Ignoring invalid config value")
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Warn().
			Str("key", key).
			Str("value", raw).
			Dur("default", fallback).
			Msg("Ignoring invalid config value")
		return fallback
	}
	return parsed
}
