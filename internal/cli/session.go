package cli

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"tradetracker/config"
	"tradetracker/internal/adapters/binanceclient"
	"tradetracker/internal/adapters/logger"
	"tradetracker/internal/adapters/sqlite"
	"tradetracker/internal/adapters/staticprice"
	"tradetracker/internal/app"
	"tradetracker/internal/ports"
)

// session holds the adapters wired for one command invocation.
type session struct {
	cfg     *config.Config
	logger  *logger.Logger
	repo    *sqlite.Repository
	service *app.PortfolioService
}

// open loads configuration, applies flag overrides and wires the service.
// Later calls return the same session.
func (a *cliApp) open() (*session, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = logger.ParseLevel(a.logLevel)
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	ctx := context.Background()
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "Failed to initialize database repository")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 4. Initialize Price Provider
	prices, err := a.priceProvider(cfg, appLogger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// 5. Initialize Application Service
	svc, err := app.NewPortfolioService(cfg, appLogger, repo, repo, prices)
	if err != nil {
		repo.Close()
		return nil, err
	}

	a.sess = &session{cfg: cfg, logger: appLogger, repo: repo, service: svc}
	return a.sess, nil
}

func (a *cliApp) close() error {
	if a.sess == nil {
		return nil
	}
	err := a.sess.repo.Close()
	a.sess = nil
	return err
}

// priceProvider picks the price source. --price flags always win and imply
// a static table; otherwise PRICE_SOURCE decides.
func (a *cliApp) priceProvider(cfg *config.Config, log ports.Logger) (ports.PriceProvider, error) {
	if len(a.prices) > 0 {
		prices, err := staticprice.ParseList(strings.Join(a.prices, ","))
		if err != nil {
			return nil, err
		}
		return staticprice.New(prices), nil
	}

	switch cfg.PriceSource {
	case config.PriceSourceStatic:
		prices, err := staticprice.ParseList(cfg.StaticPrices)
		if err != nil {
			return nil, err
		}
		if cfg.PricesFile != "" {
			fromFile, err := staticprice.LoadFile(cfg.PricesFile)
			if err != nil {
				return nil, err
			}
			maps.Copy(prices, fromFile)
		}
		return staticprice.New(prices), nil
	case config.PriceSourceBinance:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			QuoteAsset: cfg.QuoteAsset,
			Logger:     log,
			RetryDelay: cfg.RetryDelay,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, nil
	}
}
