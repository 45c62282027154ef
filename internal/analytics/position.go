package analytics

import (
	"github.com/shopspring/decimal"

	"tradetracker/internal/domain"
)

// AggregatePositions folds open lots into one position per instrument, in the
// order instruments first appear among lots. Short lots give a negative
// quantity. The average price is weighted by remaining quantity and excludes
// commission. marks supplies current prices keyed by instrument key.
func AggregatePositions(lots []OpenLot, marks map[string]decimal.Decimal) []domain.Position {
	index := make(map[string]int)
	var positions []domain.Position
	var cost []decimal.Decimal

	for _, lot := range lots {
		if lot.Trade == nil || lot.Remaining <= 0 {
			continue
		}
		t := lot.Trade
		key := t.InstrumentKey()
		qty := lot.Remaining
		if lot.IsShort() {
			qty = -qty
		}

		i, ok := index[key]
		if !ok {
			i = len(positions)
			index[key] = i
			p := domain.Position{
				Symbol:        t.Symbol,
				InstrumentKey: key,
				AssetKind:     t.AssetKind,
				Multiplier:    t.Multiplier(),
				AccountID:     t.AccountID,
				Status:        domain.StatusOpen,
				OpenedAt:      t.Timestamp,
			}
			if price, ok := marks[key]; ok {
				p.CurrentPrice = decimal.NewNullDecimal(price)
			}
			positions = append(positions, p)
			cost = append(cost, decimal.Zero)
		}

		p := &positions[i]
		p.Quantity += qty
		cost[i] = cost[i].Add(t.Price.Mul(decimal.NewFromInt(lot.Remaining)))
		if p.AccountID != t.AccountID {
			p.AccountID = 0
		}
		if t.Timestamp.Before(p.OpenedAt) {
			p.OpenedAt = t.Timestamp
		}
	}

	for i := range positions {
		abs := positions[i].Quantity
		if abs < 0 {
			abs = -abs
		}
		if abs > 0 {
			positions[i].AveragePrice = cost[i].Div(decimal.NewFromInt(abs))
		}
	}
	return positions
}
