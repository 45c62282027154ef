package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradetracker/internal/adapters/logger"
)

// Price sources for marking open positions.
const (
	PriceSourceNone    = "none"
	PriceSourceStatic  = "static"
	PriceSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
	LogJSON  bool

	// Analytics
	InitialCapital decimal.Decimal
	RiskFreeRate   decimal.Decimal // Annual, as a decimal (0.02 for 2%)
	PeriodsPerYear int
	LongTermDays   int // Holding periods longer than this are long-term

	// Risk limits (zero disables a check)
	MaxPositionPercent decimal.Decimal
	MaxDrawdownPercent decimal.Decimal
	MaxOpenPositions   int

	// Export
	ExportDir string

	// Market data
	PriceSource  string
	StaticPrices string // "SYM=PRICE,SYM=PRICE"
	PricesFile   string // YAML symbol -> price map, merged over StaticPrices

	// Binance API (PriceSource=binance)
	APIKey     string
	SecretKey  string
	IsTestnet  bool
	QuoteAsset string
	RetryDelay time.Duration
	MaxRetries int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trades.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogJSON = getEnvAsBool("LOG_JSON", false)

	// Analytics
	cfg.InitialCapital, err = getEnvAsDecimalRequired("INITIAL_CAPITAL", decimal.NewFromInt(10000))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INITIAL_CAPITAL: %v", err))
	} else if !cfg.InitialCapital.IsPositive() {
		errs = append(errs, "INITIAL_CAPITAL must be positive")
	}

	cfg.RiskFreeRate, err = getEnvAsDecimalRequired("RISK_FREE_RATE", decimal.RequireFromString("0.02"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_FREE_RATE: %v", err))
	} else if cfg.RiskFreeRate.IsNegative() || cfg.RiskFreeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "RISK_FREE_RATE must be between 0.0 (inclusive) and 1.0 (exclusive)")
	}

	cfg.PeriodsPerYear, err = getEnvAsIntRequired("PERIODS_PER_YEAR", 252)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PERIODS_PER_YEAR: %v", err))
	} else if cfg.PeriodsPerYear <= 0 {
		errs = append(errs, "PERIODS_PER_YEAR must be positive")
	}

	cfg.LongTermDays, err = getEnvAsIntRequired("LONG_TERM_DAYS", 365)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LONG_TERM_DAYS: %v", err))
	} else if cfg.LongTermDays <= 0 {
		errs = append(errs, "LONG_TERM_DAYS must be positive")
	}

	// Risk limits
	cfg.MaxPositionPercent, err = getEnvAsDecimalRequired("MAX_POSITION_PERCENT", decimal.NewFromInt(25))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_POSITION_PERCENT: %v", err))
	} else if cfg.MaxPositionPercent.IsNegative() || cfg.MaxPositionPercent.GreaterThan(decimal.NewFromInt(100)) {
		errs = append(errs, "MAX_POSITION_PERCENT must be between 0 and 100")
	}

	cfg.MaxDrawdownPercent, err = getEnvAsDecimalRequired("MAX_DRAWDOWN_PERCENT", decimal.NewFromInt(20))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN_PERCENT: %v", err))
	} else if cfg.MaxDrawdownPercent.IsNegative() || cfg.MaxDrawdownPercent.GreaterThan(decimal.NewFromInt(100)) {
		errs = append(errs, "MAX_DRAWDOWN_PERCENT must be between 0 and 100")
	}

	cfg.MaxOpenPositions = getEnvAsInt("MAX_OPEN_POSITIONS", 0)
	if cfg.MaxOpenPositions < 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS cannot be negative")
	}

	// Export
	cfg.ExportDir = getEnv("EXPORT_DIR", "./exports")

	// Market data
	cfg.PriceSource = strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceNone))
	cfg.StaticPrices = getEnv("STATIC_PRICES", "")
	cfg.PricesFile = getEnv("PRICES_FILE", "")
	switch cfg.PriceSource {
	case PriceSourceNone, PriceSourceStatic:
	case PriceSourceBinance:
		cfg.APIKey = getEnv("BINANCE_API_KEY", "")
		cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
		cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
		cfg.QuoteAsset = getEnv("BINANCE_QUOTE_ASSET", "USDT")

		retryDelayMillis := getEnvAsInt("RETRY_DELAY_MS", 1000)
		if retryDelayMillis <= 0 {
			errs = append(errs, "RETRY_DELAY_MS must be positive")
		}
		cfg.RetryDelay = time.Duration(retryDelayMillis) * time.Millisecond

		cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", 2)
		if cfg.MaxRetries < 0 {
			errs = append(errs, "MAX_RETRIES cannot be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("PRICE_SOURCE must be one of %s, %s, %s",
			PriceSourceNone, PriceSourceStatic, PriceSourceBinance))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalRequired(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
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
