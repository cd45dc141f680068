package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds environment-driven settings for the trading bot.
type Config struct {
	// Trading pair
	Symbol     string
	BaseAsset  string
	QuoteAsset string

	// Sizing and exits
	TradeSize      decimal.Decimal // base-asset quantity per order
	TakeProfitPct  decimal.Decimal // e.g. 2.0 means +2%
	StopLossPct    decimal.Decimal // e.g. 1.0 means -1%
	CheckInterval  time.Duration   // polling cycle
	ErrorBackoff   time.Duration   // extra sleep after a catastrophic cycle
	OrderTimeout   time.Duration   // cancel resting orders older than this
	CandleInterval string          // kline interval for indicators
	CandleLookback int             // klines fetched per cycle

	// Binance
	Testnet          bool
	BinanceAPIKey    string
	BinanceAPISecret string

	// AI signal service
	GeminiAPIKey string
	GeminiModel  string

	// Persistence and dashboard
	DBPath            string
	Port              string
	JWTSecret         string
	DashboardPassword string // empty disables the protected command endpoint
	RulesPath         string // optional rules.yaml overriding entry/exit params
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	testnet := getEnv("BINANCE_TESTNET", "true") == "true"

	// Key selection mirrors the testnet/production split so production
	// credentials never leak into testnet runs.
	apiKey := os.Getenv("BINANCE_PROD_API_KEY")
	apiSecret := os.Getenv("BINANCE_PROD_API_SECRET")
	if testnet {
		apiKey = os.Getenv("BINANCE_TESTNET_API_KEY")
		apiSecret = os.Getenv("BINANCE_TESTNET_API_SECRET")
	}

	cfg := &Config{
		Symbol:            getEnv("SYMBOL", "BTCUSDT"),
		BaseAsset:         getEnv("BASE_ASSET", "BTC"),
		QuoteAsset:        getEnv("QUOTE_ASSET", "USDT"),
		TradeSize:         getEnvDecimal("ORDER_AMOUNT_BASE", "0.0002"),
		TakeProfitPct:     getEnvDecimal("TAKE_PROFIT_PERCENT", "2.0"),
		StopLossPct:       getEnvDecimal("STOP_LOSS_PERCENT", "1.0"),
		CheckInterval:     time.Duration(getEnvInt("CHECK_INTERVAL_SECONDS", 60)) * time.Second,
		ErrorBackoff:      time.Duration(getEnvInt("ERROR_BACKOFF_SECONDS", 60)) * time.Second,
		OrderTimeout:      time.Duration(getEnvInt("ORDER_TIMEOUT_MINUTES", 15)) * time.Minute,
		CandleInterval:    getEnv("CANDLE_INTERVAL", "1m"),
		CandleLookback:    getEnvInt("CANDLE_LOOKBACK", 100),
		Testnet:           testnet,
		BinanceAPIKey:     apiKey,
		BinanceAPISecret:  apiSecret,
		GeminiAPIKey:      os.Getenv("GOOGLE_AI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		DBPath:            getEnv("DB_PATH", "./data/trading.db"),
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		DashboardPassword: os.Getenv("DASHBOARD_PASSWORD"),
		RulesPath:         getEnv("RULES_PATH", "rules.yaml"),
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.BinanceAPIKey == "" || c.BinanceAPISecret == "" {
		return errors.New("binance API key/secret not configured")
	}
	if c.Symbol == "" || c.BaseAsset == "" || c.QuoteAsset == "" {
		return errors.New("symbol and assets must be configured")
	}
	if !c.TradeSize.IsPositive() {
		return fmt.Errorf("ORDER_AMOUNT_BASE must be positive, got %s", c.TradeSize)
	}
	if !c.TakeProfitPct.IsPositive() || !c.StopLossPct.IsPositive() {
		return errors.New("take-profit and stop-loss percentages must be positive")
	}
	if c.CheckInterval <= 0 {
		return errors.New("CHECK_INTERVAL_SECONDS must be positive")
	}
	if c.CandleLookback < 51 {
		// SMA50 needs 50 closes plus the previous candle.
		return fmt.Errorf("CANDLE_LOOKBACK must be at least 51, got %d", c.CandleLookback)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(def)
	return d
}
