package staticprice

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tradetracker/internal/ports"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Provider implements ports.PriceProvider over a fixed price table.
// Keys are upper-cased symbols or option instrument keys.
type Provider struct {
	prices map[string]decimal.Decimal
}

// New builds a provider from a symbol -> price map.
func New(prices map[string]decimal.Decimal) *Provider {
	p := &Provider{prices: make(map[string]decimal.Decimal, len(prices))}
	for k, v := range prices {
		p.prices[normalize(k)] = v
	}
	return p
}

// ParseList parses "SYM=PRICE,SYM=PRICE" pairs.
func ParseList(s string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		sym, raw, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(sym) == "" {
			return nil, fmt.Errorf("%w: price entry %q must be SYMBOL=PRICE", ports.ErrConfigurationError, item)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: invalid price in %q", ports.ErrConfigurationError, item)
		}
		out[normalize(sym)] = price
	}
	return out, nil
}

// LoadFile reads a YAML mapping of symbol to price, e.g.
//
//	AAPL: "189.95"
//	"SPY 2024-02-16 450 put": 3.10
func LoadFile(path string) (map[string]decimal.Decimal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading price file: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing price file %s: %v", ports.ErrConfigurationError, path, err)
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for sym, v := range raw {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid price %q for %s", ports.ErrConfigurationError, v, sym)
		}
		out[normalize(sym)] = price
	}
	return out, nil
}

// WriteFile stores prices in the format LoadFile reads.
func WriteFile(path string, prices map[string]decimal.Decimal) error {
	raw := make(map[string]string, len(prices))
	for sym, price := range prices {
		raw[normalize(sym)] = price.String()
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding prices: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing price file: %w", err)
	}
	return nil
}

// GetPrice returns the configured price for symbol.
func (p *Provider) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := p.prices[normalize(symbol)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ports.ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// Ping always succeeds.
func (p *Provider) Ping(ctx context.Context) error {
	return nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.Join(strings.Fields(symbol), " "))
}
