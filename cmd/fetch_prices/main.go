package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"tradetracker/config"
	"tradetracker/internal/adapters/binanceclient"
	"tradetracker/internal/adapters/logger"
	"tradetracker/internal/adapters/staticprice"
)

const defaultPricesFile = "data/prices.yaml"

// fetch_prices looks up the latest Binance price of each symbol argument and
// merges them into PRICES_FILE, so later reports can run with PRICE_SOURCE=static.
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	symbols := os.Args[1:]
	if len(symbols) == 0 {
		log.Fatalf("usage: fetch_prices SYMBOL [SYMBOL...]")
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Initialize Price Client (Binance Adapter)
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		QuoteAsset: cfg.QuoteAsset,
		Logger:     appLogger,
		RetryDelay: cfg.RetryDelay,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	path := cfg.PricesFile
	if path == "" {
		path = defaultPricesFile
	}
	prices, err := loadExisting(path)
	if err != nil {
		log.Fatalf("Error reading %s: %v", path, err)
	}

	fetched := 0
	for _, symbol := range symbols {
		price, err := client.GetPrice(ctx, symbol)
		if err != nil {
			appLogger.Error(ctx, err, "Error fetching price", map[string]interface{}{"symbol": symbol})
			continue
		}
		prices[symbol] = price
		fetched++
		fmt.Printf("%s\t%s\n", symbol, price.String())
	}
	if fetched == 0 {
		log.Fatalf("No prices fetched")
	}

	if err := staticprice.WriteFile(path, prices); err != nil {
		appLogger.Error(ctx, err, "Error writing price file")
		log.Fatalf("Error writing price file: %v", err)
	}
	appLogger.Info(ctx, "Saved prices", map[string]interface{}{"filename": path, "count": fetched})
}

// loadExisting returns the prices already stored at path, or an empty map.
func loadExisting(path string) (map[string]decimal.Decimal, error) {
	prices, err := staticprice.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]decimal.Decimal), nil
	}
	return prices, err
}
