package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Pipeline
	Pipeline PipelineConfig

	// Feature derivation windows
	Features FeatureConfig

	// Forecasting
	Forecast ForecastConfig

	// LLM insight generation
	OpenAI OpenAIConfig

	// News sentiment
	News NewsConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// PipelineConfig holds pipeline orchestration parameters
type PipelineConfig struct {
	Symbols      []string      // ordered, deduplicated, upper-cased
	Schedule     string        // cron expression (with seconds)
	Workers      int           // bounded parallelism across symbols
	HistoryYears int           // how far back to fetch raw series
	FetchTimeout time.Duration // per fetch call
	FetchRetries int           // transient fetch retries
	FetchBackoff time.Duration // initial backoff between retries
	StoreBackend string        // postgres or memory
}

// FeatureConfig holds indicator window settings
type FeatureConfig struct {
	MAWindow       int // simple moving average window
	VolWindow      int // rolling volatility window
	MomentumWindow int // momentum lookback
	RSIPeriod      int
}

// ForecastConfig holds forecaster parameters
type ForecastConfig struct {
	LookBack   int     // sequence window for the model
	MinHistory int     // minimum rows required to train
	Deadband   float64 // |predicted - last close| below this is "flat"
}

// OpenAIConfig holds LLM service configuration
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewsConfig holds headline sentiment settings
type NewsConfig struct {
	Enabled bool
	Limit   int // max headlines per symbol
}

// Load reads configuration from environment variables
// ⭐ SSOT: this is the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			Symbols:      parseSymbols(getEnv("STOCK_SYMBOLS", "AAPL,MSFT,TSLA,GOOGL,AMZN")),
			Schedule:     getEnv("PIPELINE_SCHEDULE", "0 0 */6 * * *"), // every 6 hours
			Workers:      getEnvAsInt("PIPELINE_WORKERS", 3),
			HistoryYears: getEnvAsInt("PIPELINE_HISTORY_YEARS", 5),
			FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", "30s"),
			FetchRetries: getEnvAsInt("FETCH_MAX_RETRIES", 3),
			FetchBackoff: getEnvAsDuration("FETCH_RETRY_BACKOFF", "2s"),
			StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		},

		// Features
		Features: FeatureConfig{
			MAWindow:       getEnvAsInt("FEATURE_MA_WINDOW", 20),
			VolWindow:      getEnvAsInt("FEATURE_VOL_WINDOW", 20),
			MomentumWindow: getEnvAsInt("FEATURE_MOMENTUM_WINDOW", 10),
			RSIPeriod:      getEnvAsInt("FEATURE_RSI_PERIOD", 14),
		},

		// Forecast
		Forecast: ForecastConfig{
			LookBack:   getEnvAsInt("FORECAST_LOOK_BACK", 60),
			MinHistory: getEnvAsInt("FORECAST_MIN_HISTORY", 100),
			Deadband:   getEnvAsFloat("FORECAST_DEADBAND", 0.5),
		},

		// OpenAI
		OpenAI: OpenAIConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			BaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvAsInt("OPENAI_MAX_TOKENS", 120),
			Timeout:   getEnvAsDuration("OPENAI_TIMEOUT", "60s"),
		},

		// News
		News: NewsConfig{
			Enabled: getEnvAsBool("NEWS_ENABLED", true),
			Limit:   getEnvAsInt("NEWS_LIMIT", 5),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if len(c.Pipeline.Symbols) == 0 {
		return fmt.Errorf("STOCK_SYMBOLS must contain at least one symbol")
	}

	if c.Pipeline.StoreBackend != "postgres" && c.Pipeline.StoreBackend != "memory" {
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, memory")
	}

	// Database URL is required only for the postgres backend
	if c.Pipeline.StoreBackend == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.LookBack <= 0 || c.Forecast.MinHistory <= c.Forecast.LookBack {
		return fmt.Errorf("FORECAST_MIN_HISTORY must be greater than FORECAST_LOOK_BACK")
	}

	return nil
}

// parseSymbols normalizes a comma-separated ticker list into an ordered,
// deduplicated, upper-cased set
func parseSymbols(raw string) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	return symbols
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
