package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Strategy
	StrategyID     string
	Symbols        string // comma-separated, e.g. "BTCUSDT,ETHUSDT"
	Interval       string // candle interval, e.g. "1m"
	WindowSize     int    // candles kept per symbol
	PollInterval   time.Duration
	InitialEquity  float64
	FeeRatePct     float64
	SlippagePct    float64

	// Exchange credentials (read-only endpoints work without them)
	BinanceAPIKey    string
	BinanceSecretKey string

	// External advisor (disabled when the key is empty)
	AdvisorAPIKey  string
	AdvisorBaseURL string
	AdvisorModel   string
	AdvisorTimeout time.Duration

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Notifications (optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		StrategyID:    getEnv("STRATEGY_ID", "default"),
		Symbols:       getEnv("SYMBOLS", "BTCUSDT"),
		Interval:      getEnv("CANDLE_INTERVAL", "1m"),
		WindowSize:    getEnvInt("WINDOW_SIZE", 200),
		PollInterval:  getEnvDuration("POLL_INTERVAL", time.Minute),
		InitialEquity: getEnvFloat("INITIAL_EQUITY", 10000),
		FeeRatePct:    getEnvFloat("FEE_RATE_PCT", 0.1),
		SlippagePct:   getEnvFloat("SLIPPAGE_PCT", 0.05),

		BinanceAPIKey:    getEnv("BINANCE_API_KEY", ""),
		BinanceSecretKey: getEnv("BINANCE_SECRET_KEY", ""),

		AdvisorAPIKey:  getEnv("ADVISOR_API_KEY", ""),
		AdvisorBaseURL: getEnv("ADVISOR_BASE_URL", ""),
		AdvisorModel:   getEnv("ADVISOR_MODEL", "gpt-4o-mini"),
		AdvisorTimeout: getEnvDuration("ADVISOR_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/trades.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
}

// ParseSymbols splits the Symbols string into upper-case trading pairs.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
