package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradetracker/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.PriceProvider interface using the go-binance library.
// Prices are cached per symbol for the lifetime of the client so a report that
// marks several lots of the same instrument issues one request.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	quoteAsset    string
	retryDelay    time.Duration
	maxRetries    int

	mu    sync.Mutex
	cache map[string]decimal.Decimal
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides the production/testnet URL when set
	QuoteAsset string // Appended to bare symbols, e.g. BTC -> BTCUSDT (default USDT)
	Logger     ports.Logger
	RetryDelay time.Duration // Delay between retries of transient failures (default 1s)
	MaxRetries int           // Retries after the first attempt (default 2)
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Debug(context.Background(), "Binance price client configured", map[string]interface{}{"baseURL": client.BaseURL})

	quote := strings.ToUpper(cfg.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 1 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = 2
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		quoteAsset:    quote,
		retryDelay:    retryDelay,
		maxRetries:    maxRetries,
		cache:         make(map[string]decimal.Decimal),
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Bad signature or API key
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrSymbolNotFound
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// exchangeSymbol maps a tracker symbol onto the exchange's pair name.
// Option instrument keys contain spaces and have no exchange equivalent.
func (c *Client) exchangeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.Contains(s, " ") {
		return "", fmt.Errorf("%w: %q", ports.ErrSymbolNotFound, symbol)
	}
	if !strings.HasSuffix(s, c.quoteAsset) {
		s += c.quoteAsset
	}
	return s, nil
}

// GetPrice retrieves the last traded price for a symbol, retrying rate-limit
// and connection failures.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "GetPrice"
	pair, err := c.exchangeSymbol(symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w: %w", op, ports.ErrPriceUnavailable, err)
	}

	c.mu.Lock()
	cached, ok := c.cache[pair]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn(ctx, "Retrying price request", map[string]interface{}{"symbol": pair, "attempt": attempt})
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return decimal.Zero, c.handleError(ctx, ctx.Err(), op)
			case <-timer.C:
			}
		}

		price, err := c.fetchLastPrice(ctx, pair)
		if err == nil {
			c.mu.Lock()
			c.cache[pair] = price
			c.mu.Unlock()
			return price, nil
		}
		lastErr = c.handleError(ctx, err, op)
		if !errors.Is(lastErr, ports.ErrRateLimited) && !errors.Is(lastErr, ports.ErrConnectionFailed) {
			break
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %w", ports.ErrPriceUnavailable, lastErr)
}

func (c *Client) fetchLastPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if len(tickers) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker data returned for symbol %s", pair)
	}
	price, err := decimal.NewFromString(tickers[0].LastPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
	}
	return price, nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}
