package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradetracker/internal/domain"
)

// ErrExpiryValueUnspecified is returned for options that expired with value;
// only worthless expiry has defined P&L.
var ErrExpiryValueUnspecified = errors.New("P&L for options expiring with value is not specified")

// ErrMismatchedPair is returned when a pair's trades cannot be priced together.
var ErrMismatchedPair = errors.New("trade pair mismatch")

var (
	hundred = decimal.NewFromInt(100)

	// pairNamespace seeds the name-based pair identifiers so the same trades
	// always produce the same pair ID.
	pairNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tradetracker/trade-pairs"))
)

// TradePair associates an opening trade with the trade that closes it.
type TradePair struct {
	ID       string
	Opening  *domain.Trade
	Closing  *domain.Trade
	Quantity int64 // Quantity closed by this pair
}

// NewTradePair builds a pair with an ID derived from the two trade keys.
// MatchFIFO replaces it with one that also encodes each trade's position in
// the history, so identical unsaved fills still get distinct pairs.
// A quantity <= 0 defaults to the closing trade's quantity.
func NewTradePair(opening, closing *domain.Trade, quantity int64) TradePair {
	if quantity <= 0 {
		quantity = closing.Quantity
	}
	return TradePair{
		ID:       pairID(opening.Key(), closing.Key()),
		Opening:  opening,
		Closing:  closing,
		Quantity: quantity,
	}
}

func pairID(openingKey, closingKey string) string {
	return uuid.NewSHA1(pairNamespace, []byte(openingKey+"->"+closingKey)).String()
}

// PositionPnL is the P&L result for one matched pair or one open position.
// Exactly one of RealizedPnL and UnrealizedPnL is valid.
type PositionPnL struct {
	PairID          string           // Join key back to the trades that produced the result
	OpeningTradeKey string           // domain.Trade.Key() of the opening trade
	Symbol          string
	AssetKind       domain.AssetKind
	Strategy        domain.Strategy  // Tag of the opening trade

	RealizedPnL      decimal.NullDecimal
	UnrealizedPnL    decimal.NullDecimal
	ReturnPercentage decimal.Decimal
	CostBasis        decimal.Decimal
	Proceeds         decimal.Decimal
	MarkPrice        decimal.NullDecimal // Price used for unrealized P&L

	HoldingPeriodDays int
	Quantity          int64
	EntryPrice        decimal.Decimal
	ExitPrice         decimal.Decimal
	EntryDate         time.Time
	ExitDate          time.Time // Zero for open positions
}

// IsClosed reports whether the result is realized.
func (p PositionPnL) IsClosed() bool {
	return p.RealizedPnL.Valid
}

// TotalPnL returns realized plus unrealized P&L, treating missing values as zero.
func (p PositionPnL) TotalPnL() decimal.Decimal {
	total := decimal.Zero
	if p.RealizedPnL.Valid {
		total = total.Add(p.RealizedPnL.Decimal)
	}
	if p.UnrealizedPnL.Valid {
		total = total.Add(p.UnrealizedPnL.Decimal)
	}
	return total
}

// HoldingTerm is the simple day-count tax classification of a closed position.
type HoldingTerm string

const (
	TermShort HoldingTerm = "Short-term"
	TermLong  HoldingTerm = "Long-term"
)

// Term classifies the holding period; strictly more than longTermDays is long-term.
func (p PositionPnL) Term(longTermDays int) HoldingTerm {
	if p.HoldingPeriodDays > longTermDays {
		return TermLong
	}
	return TermShort
}

// CalculateStockPnL computes realized P&L for a stock pair. A quantity <= 0
// uses the closing trade's quantity. Each trade's commission is spread over
// that trade's own quantity, so partial closes carry proportional commission.
func CalculateStockPnL(opening, closing *domain.Trade, quantity int64) PositionPnL {
	return closedPnL(opening, closing, quantity, false)
}

// CalculateOptionPnL computes realized P&L for an option pair. Prices are scaled
// by each trade's contract multiplier before per-contract commission is applied.
func CalculateOptionPnL(opening, closing *domain.Trade, quantity int64) PositionPnL {
	return closedPnL(opening, closing, quantity, true)
}

// CalculatePairPnL dispatches on the asset kind of the pair.
func CalculatePairPnL(pair TradePair) (PositionPnL, error) {
	if pair.Opening == nil || pair.Closing == nil {
		return PositionPnL{}, fmt.Errorf("%w: both trades are required", ErrMismatchedPair)
	}
	if pair.Opening.AssetKind != pair.Closing.AssetKind {
		return PositionPnL{}, fmt.Errorf("%w: %s opened as %s but closed as %s",
			ErrMismatchedPair, pair.Opening.Symbol, pair.Opening.AssetKind, pair.Closing.AssetKind)
	}
	if pair.Opening.Symbol != pair.Closing.Symbol {
		return PositionPnL{}, fmt.Errorf("%w: %s closed by %s", ErrMismatchedPair, pair.Opening.Symbol, pair.Closing.Symbol)
	}
	if pair.Opening.Quantity <= 0 || pair.Closing.Quantity <= 0 {
		return PositionPnL{}, fmt.Errorf("%w: non-positive trade quantity", ErrMismatchedPair)
	}

	var res PositionPnL
	switch pair.Opening.AssetKind {
	case domain.AssetOption:
		if pair.Opening.Option == nil || pair.Closing.Option == nil {
			return PositionPnL{}, fmt.Errorf("%w: option trade without contract details", ErrMismatchedPair)
		}
		res = CalculateOptionPnL(pair.Opening, pair.Closing, pair.Quantity)
	default:
		res = CalculateStockPnL(pair.Opening, pair.Closing, pair.Quantity)
	}
	res.PairID = pair.ID
	return res, nil
}

func closedPnL(opening, closing *domain.Trade, quantity int64, useMultiplier bool) PositionPnL {
	if quantity <= 0 {
		quantity = closing.Quantity
	}

	// A pair opened by a sell is a short: the buy side carries the cost.
	buy, sell := opening, closing
	if opening.Action.IsSell() {
		buy, sell = closing, opening
	}

	buyCostPerUnit := unitPrice(buy, useMultiplier).Add(perUnitCommission(buy))
	sellProceedsPerUnit := unitPrice(sell, useMultiplier).Sub(perUnitCommission(sell))

	q := decimal.NewFromInt(quantity)
	costBasis := buyCostPerUnit.Mul(q)
	proceeds := sellProceedsPerUnit.Mul(q)
	realized := proceeds.Sub(costBasis)

	return PositionPnL{
		PairID:            pairID(opening.Key(), closing.Key()),
		OpeningTradeKey:   opening.Key(),
		Symbol:            opening.Symbol,
		AssetKind:         opening.AssetKind,
		Strategy:          strategyOf(opening),
		RealizedPnL:       decimal.NewNullDecimal(round2(realized)),
		ReturnPercentage:  round2(percentOf(realized, costBasis)),
		CostBasis:         round2(costBasis),
		Proceeds:          round2(proceeds),
		HoldingPeriodDays: daysBetween(opening.Timestamp, closing.Timestamp),
		Quantity:          quantity,
		EntryPrice:        opening.Price,
		ExitPrice:         closing.Price,
		EntryDate:         opening.Timestamp,
		ExitDate:          closing.Timestamp,
	}
}

// CalculateOptionExpiryPnL computes P&L for an option held to expiry without a
// closing trade. A long option expiring worthless loses its full cost basis
// (premium × quantity × multiplier + commission); a short option keeps its premium
// net of commission.
func CalculateOptionExpiryPnL(opening *domain.Trade, expiredWorthless bool) (PositionPnL, error) {
	if !expiredWorthless {
		return PositionPnL{}, fmt.Errorf("%s: %w", opening.InstrumentKey(), ErrExpiryValueUnspecified)
	}

	premium := opening.Price.
		Mul(decimal.NewFromInt(opening.Quantity)).
		Mul(decimal.NewFromInt(opening.Multiplier()))

	res := PositionPnL{
		PairID:          pairID(opening.Key(), "expiry"),
		OpeningTradeKey: opening.Key(),
		Symbol:          opening.Symbol,
		AssetKind:       opening.AssetKind,
		Strategy:        strategyOf(opening),
		Quantity:        opening.Quantity,
		EntryPrice:      opening.Price,
		ExitPrice:       decimal.Zero,
		EntryDate:       opening.Timestamp,
	}
	if opening.Option != nil {
		res.ExitDate = opening.Option.Expiry
		res.HoldingPeriodDays = daysBetween(opening.Timestamp, opening.Option.Expiry)
	}

	if opening.Action.IsSell() {
		proceeds := premium.Sub(opening.Commission)
		res.RealizedPnL = decimal.NewNullDecimal(round2(proceeds))
		res.ReturnPercentage = round2(hundred)
		res.CostBasis = decimal.Zero
		res.Proceeds = round2(proceeds)
		return res, nil
	}

	costBasis := premium.Add(opening.Commission)
	res.RealizedPnL = decimal.NewNullDecimal(round2(costBasis.Neg()))
	res.ReturnPercentage = round2(hundred.Neg())
	res.CostBasis = round2(costBasis)
	res.Proceeds = round2(decimal.Zero)
	return res, nil
}

// CalculateLotExpiryPnL expires the unmatched remainder of an option lot.
// Commission is charged in proportion to the remaining contracts.
func CalculateLotExpiryPnL(lot OpenLot, expiredWorthless bool) (PositionPnL, error) {
	if lot.Remaining == lot.Trade.Quantity {
		res, err := CalculateOptionExpiryPnL(lot.Trade, expiredWorthless)
		if err != nil {
			return res, err
		}
		res.PairID = pairID(lot.key(), "expiry")
		return res, nil
	}
	part := *lot.Trade
	part.Quantity = lot.Remaining
	part.Commission = lot.Trade.Commission.
		Mul(decimal.NewFromInt(lot.Remaining)).
		Div(decimal.NewFromInt(lot.Trade.Quantity))

	res, err := CalculateOptionExpiryPnL(&part, expiredWorthless)
	if err != nil {
		return res, err
	}
	res.OpeningTradeKey = lot.Trade.Key()
	res.PairID = pairID(lot.key(), "expiry")
	return res, nil
}

// CalculateUnrealizedStockPnL marks an open stock position to market.
// Commission is charged once, on entry.
func CalculateUnrealizedStockPnL(opening *domain.Trade, currentPrice decimal.Decimal) PositionPnL {
	return openPnL(opening, opening.Quantity, currentPrice, false)
}

// CalculateUnrealizedOptionPnL marks an open option position to market using
// the contract multiplier.
func CalculateUnrealizedOptionPnL(opening *domain.Trade, currentPrice decimal.Decimal) PositionPnL {
	return openPnL(opening, opening.Quantity, currentPrice, true)
}

// CalculateUnrealizedLotPnL marks the unmatched remainder of a lot to market,
// charging the entry commission in proportion to the remaining quantity.
func CalculateUnrealizedLotPnL(lot OpenLot, currentPrice decimal.Decimal) PositionPnL {
	res := openPnL(lot.Trade, lot.Remaining, currentPrice, lot.Trade.IsOption())
	res.PairID = pairID(lot.key(), "open")
	return res
}

func openPnL(opening *domain.Trade, quantity int64, currentPrice decimal.Decimal, useMultiplier bool) PositionPnL {
	q := decimal.NewFromInt(quantity)
	gross := unitPrice(opening, useMultiplier).Mul(q)
	commission := opening.Commission
	if quantity != opening.Quantity {
		commission = commission.Mul(q).Div(decimal.NewFromInt(opening.Quantity))
	}

	mult := decimal.NewFromInt(1)
	if useMultiplier {
		mult = decimal.NewFromInt(opening.Multiplier())
	}
	marketValue := currentPrice.Mul(q).Mul(mult)

	// Long positions gain as price rises; short positions (opened by a sell)
	// gain as it falls, measured against the premium received.
	var basis, unrealized decimal.Decimal
	if opening.Action.IsSell() {
		basis = gross.Sub(commission)
		unrealized = basis.Sub(marketValue)
	} else {
		basis = gross.Add(commission)
		unrealized = marketValue.Sub(basis)
	}

	return PositionPnL{
		PairID:           pairID(opening.Key(), "open"),
		OpeningTradeKey:  opening.Key(),
		Symbol:           opening.Symbol,
		AssetKind:        opening.AssetKind,
		Strategy:         strategyOf(opening),
		UnrealizedPnL:    decimal.NewNullDecimal(round2(unrealized)),
		ReturnPercentage: round2(percentOf(unrealized, basis)),
		CostBasis:        round2(basis),
		MarkPrice:        decimal.NewNullDecimal(currentPrice),
		Quantity:         quantity,
		EntryPrice:       opening.Price,
		EntryDate:        opening.Timestamp,
	}
}

func unitPrice(t *domain.Trade, useMultiplier bool) decimal.Decimal {
	if !useMultiplier {
		return t.Price
	}
	return t.Price.Mul(decimal.NewFromInt(t.Multiplier()))
}

func perUnitCommission(t *domain.Trade) decimal.Decimal {
	return t.Commission.Div(decimal.NewFromInt(t.Quantity))
}

func strategyOf(t *domain.Trade) domain.Strategy {
	if t.Strategy == "" {
		return domain.StrategyUntagged
	}
	return t.Strategy
}

// daysBetween returns whole days from a to b, floored like a calendar day count.
// Out-of-order inputs give a negative result.
func daysBetween(a, b time.Time) int {
	const day = 24 * time.Hour
	d := b.Sub(a)
	days := d / day
	if d < 0 && d%day != 0 {
		days--
	}
	return int(days)
}
