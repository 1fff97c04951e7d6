// Package config provides configuration management for the wallet tax scanner.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Helius      HeliusConfig
	Prices      PricesConfig
	Cache       CacheConfig
	Calculation CalculationConfig
	Logging     LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// HeliusConfig holds ledger data provider configuration
type HeliusConfig struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond is the provider quota ceiling. It is a throughput
	// ceiling, not a correctness mechanism, and must be tunable without
	// code changes (free tier: 10, paid tier: 50).
	RequestsPerSecond float64
	PageSize          int
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestTimeout    time.Duration
	ParseWorkers      int
}

// PricesConfig holds market price provider configuration
type PricesConfig struct {
	CoinGeckoBaseURL   string
	DexScreenerBaseURL string
	CoinGeckoRPS       float64
	DexScreenerRPS     float64
	RequestTimeout     time.Duration
	DefaultSOLPriceUSD float64
}

// CacheConfig holds daily price cache configuration
type CacheConfig struct {
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// CalculationConfig holds calculation pipeline configuration
type CalculationConfig struct {
	DefaultMaxTransactions int
	MaxMaxTransactions     int
	PipelineTimeout        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Helius: HeliusConfig{
			APIKey:            getEnv("HELIUS_API_KEY", ""),
			BaseURL:           getEnv("HELIUS_BASE_URL", "https://api.helius.xyz/v0"),
			RequestsPerSecond: getEnvAsFloat("HELIUS_REQUESTS_PER_SECOND", 50),
			PageSize:          getEnvAsInt("HELIUS_PAGE_SIZE", 100),
			MaxRetries:        getEnvAsInt("HELIUS_MAX_RETRIES", 5),
			RetryBaseDelay:    getEnvAsDuration("HELIUS_RETRY_BASE_DELAY", 1*time.Second),
			RequestTimeout:    getEnvAsDuration("HELIUS_REQUEST_TIMEOUT", 30*time.Second),
			ParseWorkers:      getEnvAsInt("HELIUS_PARSE_WORKERS", 4),
		},
		Prices: PricesConfig{
			CoinGeckoBaseURL:   getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com/latest"),
			CoinGeckoRPS:       getEnvAsFloat("COINGECKO_REQUESTS_PER_SECOND", 10),
			DexScreenerRPS:     getEnvAsFloat("DEXSCREENER_REQUESTS_PER_SECOND", 5),
			RequestTimeout:     getEnvAsDuration("PRICES_REQUEST_TIMEOUT", 10*time.Second),
			DefaultSOLPriceUSD: getEnvAsFloat("DEFAULT_SOL_PRICE_USD", 150.0),
		},
		Cache: CacheConfig{
			RedisEnabled:  getEnvAsBool("REDIS_ENABLED", false),
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           getEnvAsDuration("CACHE_TTL", 7*24*time.Hour),
		},
		Calculation: CalculationConfig{
			DefaultMaxTransactions: getEnvAsInt("CALC_DEFAULT_MAX_TRANSACTIONS", 1000),
			MaxMaxTransactions:     getEnvAsInt("CALC_MAX_MAX_TRANSACTIONS", 10000),
			PipelineTimeout:        getEnvAsDuration("CALC_PIPELINE_TIMEOUT", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
