package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceProvider supplies current market prices for marking open positions.
// Symbols are the trade's symbol for stocks and the instrument key for options.
type PriceProvider interface {
	// GetPrice returns the last traded price for a symbol.
	// Returns an error wrapping ErrPriceUnavailable if no price is known.
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// Ping checks the connectivity to the price source.
	Ping(ctx context.Context) error
}
