package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMultiplier is the standard contract multiplier for equity options.
	DefaultMultiplier int64 = 100
	maxSymbolLength         = 10
)

// OptionContract holds the option-only payload of a trade.
type OptionContract struct {
	Strike     decimal.Decimal // Strike price, > 0
	Expiry     time.Time       // Expiration date
	Right      OptionRight     // call or put
	Multiplier int64           // Shares per contract, > 0 (default 100)
}

// Trade represents one executed transaction for a stock or an option.
// Option trades always carry Option; stock trades never do.
type Trade struct {
	ID         int64           // Unique identifier (from DB, 0 if not persisted)
	Symbol     string          // Ticker (e.g., "AAPL")
	AssetKind  AssetKind       // stock or option
	Action     Action          // buy/sell or option open/close action
	Quantity   int64           // Shares or contracts, > 0
	Price      decimal.Decimal // Price per share or per contract (premium)
	Commission decimal.Decimal // Flat commission for the whole transaction
	Timestamp  time.Time       // Execution time
	AccountID  int64           // Owning account (0 if none)
	Strategy   Strategy        // Strategy tag, defaults to untagged
	Notes      string

	Option *OptionContract // Option payload, nil for stock trades
}

// NewStockTrade builds and validates a stock trade.
func NewStockTrade(symbol string, action Action, quantity int64, price, commission decimal.Decimal, ts time.Time) (*Trade, error) {
	t := &Trade{
		Symbol:     symbol,
		AssetKind:  AssetStock,
		Action:     action,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
	}
	if err := t.Normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewOptionTrade builds and validates an option trade. A zero multiplier defaults to 100.
func NewOptionTrade(symbol string, action Action, quantity int64, price, commission decimal.Decimal, ts time.Time, contract OptionContract) (*Trade, error) {
	c := contract
	t := &Trade{
		Symbol:     symbol,
		AssetKind:  AssetOption,
		Action:     action,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
		Option:     &c,
	}
	if err := t.Normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

// Normalize applies defaults (upper-case symbol, untagged strategy, option multiplier)
// and validates the result.
func (t *Trade) Normalize() error {
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	if t.Strategy == "" {
		t.Strategy = StrategyUntagged
	}
	if t.Option != nil && t.Option.Multiplier == 0 {
		t.Option.Multiplier = DefaultMultiplier
	}
	return t.Validate()
}

// Validate checks the trade invariants.
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidTrade)
	}
	if len(t.Symbol) > maxSymbolLength {
		return fmt.Errorf("%w: symbol %q longer than %d characters", ErrInvalidTrade, t.Symbol, maxSymbolLength)
	}
	if t.AssetKind != AssetStock && t.AssetKind != AssetOption {
		return fmt.Errorf("%w: unknown asset kind %q", ErrInvalidTrade, t.AssetKind)
	}
	if !t.Action.validFor(t.AssetKind) {
		return fmt.Errorf("%w: action %q not valid for %s", ErrInvalidTrade, t.Action, t.AssetKind)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidTrade, t.Quantity)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidTrade)
	}
	if t.Commission.IsNegative() {
		return fmt.Errorf("%w: commission cannot be negative", ErrInvalidTrade)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: trade timestamp is required", ErrInvalidTrade)
	}
	if t.Strategy != "" && !t.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidTrade, t.Strategy)
	}

	switch t.AssetKind {
	case AssetStock:
		if t.Option != nil {
			return fmt.Errorf("%w: stock trade cannot carry option details", ErrInvalidTrade)
		}
	case AssetOption:
		if t.Option == nil {
			return fmt.Errorf("%w: option trade requires strike, expiry, right and multiplier", ErrInvalidTrade)
		}
		if !t.Option.Strike.IsPositive() {
			return fmt.Errorf("%w: strike must be positive", ErrInvalidTrade)
		}
		if t.Option.Expiry.IsZero() {
			return fmt.Errorf("%w: expiry is required", ErrInvalidTrade)
		}
		if t.Option.Right != RightCall && t.Option.Right != RightPut {
			return fmt.Errorf("%w: unknown option right %q", ErrInvalidTrade, t.Option.Right)
		}
		if t.Option.Multiplier <= 0 {
			return fmt.Errorf("%w: multiplier must be positive", ErrInvalidTrade)
		}
	}
	return nil
}

// IsOption reports whether the trade is an option trade.
func (t *Trade) IsOption() bool {
	return t.AssetKind == AssetOption
}

// Multiplier returns the contract multiplier, 1 for stocks.
func (t *Trade) Multiplier() int64 {
	if t.Option == nil {
		return 1
	}
	return t.Option.Multiplier
}

// InstrumentKey identifies the tradable instrument: the symbol for stocks,
// the full contract (symbol, expiry, strike, right) for options.
func (t *Trade) InstrumentKey() string {
	if t.Option == nil {
		return t.Symbol
	}
	return fmt.Sprintf("%s %s %s %s", t.Symbol, t.Option.Expiry.Format("2006-01-02"), t.Option.Strike.String(), t.Option.Right)
}

// Key returns a stable identity for the trade. Persisted trades use their ID;
// unsaved trades use a composite of their immutable fields.
func (t *Trade) Key() string {
	if t.ID != 0 {
		return fmt.Sprintf("id:%d", t.ID)
	}
	return fmt.Sprintf("%s|%s|%d|%s|%s|%s", t.InstrumentKey(), t.Action, t.Quantity,
		t.Price.String(), t.Commission.String(), t.Timestamp.UTC().Format(time.RFC3339Nano))
}

// TotalCost is the cash amount of the trade: quantity × price (× multiplier)
// plus commission for buys, minus commission for sells.
func (t *Trade) TotalCost() decimal.Decimal {
	base := t.Price.Mul(decimal.NewFromInt(t.Quantity)).Mul(decimal.NewFromInt(t.Multiplier()))
	if t.Action.IsBuy() {
		return base.Add(t.Commission)
	}
	return base.Sub(t.Commission)
}
