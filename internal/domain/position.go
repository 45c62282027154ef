package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus represents the status of a holding.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// Position represents a current holding in one instrument, aggregated from open lots.
type Position struct {
	Symbol        string
	InstrumentKey string              // Symbol, or full option contract
	AssetKind     AssetKind           // stock or option
	Quantity      int64               // Negative for short positions
	Multiplier    int64               // 1 for stocks
	AveragePrice  decimal.Decimal     // Average entry price per share/contract
	CurrentPrice  decimal.NullDecimal // Last known market price, if any
	AccountID     int64               // Owning account (0 if none)
	Status        PositionStatus      // open or closed
	OpenedAt      time.Time           // Earliest open lot timestamp
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// IsShort reports whether the position is short (negative quantity).
func (p *Position) IsShort() bool {
	return p.Quantity < 0
}

// MarketValue returns the absolute market value of the holding, if a price is known.
func (p *Position) MarketValue() decimal.NullDecimal {
	if !p.CurrentPrice.Valid {
		return decimal.NullDecimal{}
	}
	qty := decimal.NewFromInt(abs64(p.Quantity) * p.multiplier())
	return decimal.NewNullDecimal(p.CurrentPrice.Decimal.Mul(qty))
}

// UnrealizedPnL is the mark-to-market gain against the average entry price,
// excluding commissions. Undefined when no price is known or the position is closed.
// Long: (current - average) × qty; short: (average - current) × |qty|.
func (p *Position) UnrealizedPnL() decimal.NullDecimal {
	if !p.CurrentPrice.Valid || !p.IsOpen() {
		return decimal.NullDecimal{}
	}
	qty := decimal.NewFromInt(abs64(p.Quantity) * p.multiplier())
	diff := p.CurrentPrice.Decimal.Sub(p.AveragePrice)
	if p.IsShort() {
		diff = diff.Neg()
	}
	return decimal.NewNullDecimal(diff.Mul(qty))
}

func (p *Position) multiplier() int64 {
	if p.Multiplier <= 0 {
		return 1
	}
	return p.Multiplier
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
