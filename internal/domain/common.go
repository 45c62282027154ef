package domain

import (
	"fmt"
	"strings"
)

// AssetKind distinguishes stock trades from option trades.
type AssetKind string

const (
	AssetStock  AssetKind = "stock"
	AssetOption AssetKind = "option"
)

// Action represents the side (and for options, the open/close intent) of a trade.
type Action string

const (
	ActionBuy         Action = "buy"
	ActionSell        Action = "sell"
	ActionBuyToOpen   Action = "buy_to_open"
	ActionSellToClose Action = "sell_to_close"
	ActionBuyToClose  Action = "buy_to_close"
	ActionSellToOpen  Action = "sell_to_open"
)

// IsBuy reports whether the action adds shares or contracts to the account.
func (a Action) IsBuy() bool {
	return strings.Contains(string(a), "buy")
}

// IsSell reports whether the action removes shares or contracts from the account.
func (a Action) IsSell() bool {
	return strings.Contains(string(a), "sell")
}

// IsOpening reports whether an option action explicitly opens a position.
// Stock actions carry no open/close intent and always return false.
func (a Action) IsOpening() bool {
	return a == ActionBuyToOpen || a == ActionSellToOpen
}

// validFor checks that the action belongs to the vocabulary of the asset kind.
func (a Action) validFor(kind AssetKind) bool {
	switch kind {
	case AssetStock:
		return a == ActionBuy || a == ActionSell
	case AssetOption:
		return a == ActionBuyToOpen || a == ActionSellToClose || a == ActionBuyToClose || a == ActionSellToOpen
	default:
		return false
	}
}

// OptionRight is the call/put right of an option contract.
type OptionRight string

const (
	RightCall OptionRight = "call"
	RightPut  OptionRight = "put"
)

// Strategy is the categorical tag identifying the trading approach used for a trade.
type Strategy string

const (
	// Stock strategies
	StrategyDayTrade      Strategy = "day_trade"
	StrategySwingTrade    Strategy = "swing_trade"
	StrategyPositionTrade Strategy = "position_trade"
	StrategyScalping      Strategy = "scalping"
	StrategyMomentum      Strategy = "momentum"
	StrategyBreakout      Strategy = "breakout"
	StrategyReversal      Strategy = "reversal"

	// Option strategies
	StrategyCoveredCall    Strategy = "covered_call"
	StrategyCashSecuredPut Strategy = "cash_secured_put"
	StrategyProtectivePut  Strategy = "protective_put"
	StrategyCollar         Strategy = "collar"
	StrategyLongCall       Strategy = "long_call"
	StrategyLongPut        Strategy = "long_put"
	StrategyBullCallSpread Strategy = "bull_call_spread"
	StrategyBearPutSpread  Strategy = "bear_put_spread"
	StrategyIronCondor     Strategy = "iron_condor"
	StrategyButterfly      Strategy = "butterfly"
	StrategyStraddle       Strategy = "straddle"
	StrategyStrangle       Strategy = "strangle"
	StrategyCalendarSpread Strategy = "calendar_spread"

	// General
	StrategyOther    Strategy = "other"
	StrategyUntagged Strategy = "untagged"
)

var allStrategies = []Strategy{
	StrategyDayTrade, StrategySwingTrade, StrategyPositionTrade, StrategyScalping,
	StrategyMomentum, StrategyBreakout, StrategyReversal,
	StrategyCoveredCall, StrategyCashSecuredPut, StrategyProtectivePut, StrategyCollar,
	StrategyLongCall, StrategyLongPut, StrategyBullCallSpread, StrategyBearPutSpread,
	StrategyIronCondor, StrategyButterfly, StrategyStraddle, StrategyStrangle,
	StrategyCalendarSpread,
	StrategyOther, StrategyUntagged,
}

// Strategies returns the closed strategy vocabulary in declaration order.
func Strategies() []Strategy {
	out := make([]Strategy, len(allStrategies))
	copy(out, allStrategies)
	return out
}

// ParseStrategy converts a tag string to a Strategy. An empty string maps to untagged.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyUntagged, nil
	}
	st := Strategy(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidTrade, s)
	}
	return st, nil
}

// Valid reports whether the strategy belongs to the vocabulary.
func (s Strategy) Valid() bool {
	for _, st := range allStrategies {
		if st == s {
			return true
		}
	}
	return false
}

// DisplayName converts the snake_case tag into Title Case (e.g. "Day Trade").
func (s Strategy) DisplayName() string {
	words := strings.Split(string(s), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Broker identifies where an account's trades originate.
type Broker string

const (
	BrokerIBKR      Broker = "ibkr"
	BrokerMoomoo    Broker = "moomoo"
	BrokerQuestrade Broker = "questrade"
	BrokerManual    Broker = "manual"
)
