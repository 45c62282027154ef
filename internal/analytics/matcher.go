package analytics

import (
	"fmt"
	"sort"

	"tradetracker/internal/domain"
)

// OpenLot is the unmatched remainder of an opening trade.
type OpenLot struct {
	Trade     *domain.Trade
	Remaining int64
	Seq       int // Position of Trade in its instrument's time-ordered history
}

// key identifies the lot even when identical unsaved trades share Trade.Key.
func (l OpenLot) key() string {
	return fmt.Sprintf("%s#%d", l.Trade.Key(), l.Seq)
}

// IsShort reports whether the lot was opened by a sell.
func (l OpenLot) IsShort() bool {
	return l.Trade.Action.IsSell()
}

// MatchResult holds the pairs produced by the matcher and the lots left open.
type MatchResult struct {
	Pairs    []TradePair // Ordered by closing time
	OpenLots []OpenLot   // Ordered by instrument, then opening time
}

// MatchFIFO pairs opening and closing trades per instrument in strict time order.
// Buys first close pending short lots and sells first close pending long lots,
// earliest lot first, splitting trades across lots when quantities differ.
// Whatever is left over opens a new lot.
func MatchFIFO(trades []*domain.Trade) MatchResult {
	var res MatchResult
	for _, group := range groupByInstrument(trades) {
		sortByTime(group)

		var longs, shorts []*OpenLot
		for seq, t := range group {
			remaining := t.Quantity
			var pending *[]*OpenLot
			if t.Action.IsBuy() {
				pending = &shorts
			} else {
				pending = &longs
			}

			for remaining > 0 && len(*pending) > 0 {
				lot := (*pending)[0]
				q := min(lot.Remaining, remaining)
				pair := NewTradePair(lot.Trade, t, q)
				pair.ID = pairID(lot.key(), fmt.Sprintf("%s#%d", t.Key(), seq))
				res.Pairs = append(res.Pairs, pair)
				lot.Remaining -= q
				remaining -= q
				if lot.Remaining == 0 {
					*pending = (*pending)[1:]
				}
			}

			if remaining > 0 {
				lot := &OpenLot{Trade: t, Remaining: remaining, Seq: seq}
				if t.Action.IsBuy() {
					longs = append(longs, lot)
				} else {
					shorts = append(shorts, lot)
				}
			}
		}

		left := make([]OpenLot, 0, len(longs)+len(shorts))
		for _, l := range longs {
			left = append(left, *l)
		}
		for _, l := range shorts {
			left = append(left, *l)
		}
		sort.SliceStable(left, func(i, j int) bool {
			return left[i].Trade.Timestamp.Before(left[j].Trade.Timestamp)
		})
		res.OpenLots = append(res.OpenLots, left...)
	}

	sort.SliceStable(res.Pairs, func(i, j int) bool {
		return res.Pairs[i].Closing.Timestamp.Before(res.Pairs[j].Closing.Timestamp)
	})
	return res
}

// MatchIndexed pairs the i-th buy with the i-th sell of each symbol after sorting
// both lists by time, ignoring quantities. Trades beyond min(#buys, #sells) stay
// unmatched. It can pair a sell with a later buy and is kept only for
// comparison with MatchFIFO.
func MatchIndexed(trades []*domain.Trade) []TradePair {
	groups := make(map[string][]*domain.Trade)
	var order []string
	for _, t := range trades {
		if _, ok := groups[t.Symbol]; !ok {
			order = append(order, t.Symbol)
		}
		groups[t.Symbol] = append(groups[t.Symbol], t)
	}

	var pairs []TradePair
	for _, symbol := range order {
		group := groups[symbol]
		sortByTime(group)
		var buys, sells []*domain.Trade
		for _, t := range group {
			if t.Action.IsBuy() {
				buys = append(buys, t)
			} else if t.Action.IsSell() {
				sells = append(sells, t)
			}
		}
		for i := 0; i < len(buys) && i < len(sells); i++ {
			pairs = append(pairs, NewTradePair(buys[i], sells[i], 0))
		}
	}
	return pairs
}

// groupByInstrument splits trades by instrument key, keeping first-seen order.
// The input slice is not modified.
func groupByInstrument(trades []*domain.Trade) [][]*domain.Trade {
	index := make(map[string]int)
	var groups [][]*domain.Trade
	for _, t := range trades {
		if t == nil {
			continue
		}
		key := t.InstrumentKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], t)
	}
	return groups
}

func sortByTime(trades []*domain.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
}
