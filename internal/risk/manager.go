package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tradetracker/internal/analytics"
	"tradetracker/internal/domain"
)

// Limit breaches reported by Assess.
var (
	ErrPositionLimit      = errors.New("position exceeds maximum share of equity")
	ErrDrawdownLimit      = errors.New("drawdown exceeds maximum allowed")
	ErrOpenPositionsLimit = errors.New("too many open positions")
)

var hundred = decimal.NewFromInt(100)

// RiskConfig holds the portfolio limits. Zero values disable a check.
type RiskConfig struct {
	MaxPositionPercent decimal.Decimal // Market value of one position as % of equity
	MaxDrawdownPercent decimal.Decimal // Realized peak-to-trough decline
	MaxOpenPositions   int
}

// Exposure is one open position measured against account equity.
type Exposure struct {
	Position        domain.Position
	MarketValue     decimal.NullDecimal // Unset when the position has no price
	PercentOfEquity decimal.Decimal
}

// Assessment is the outcome of checking a portfolio against its limits.
type Assessment struct {
	Equity        decimal.Decimal
	TotalExposure decimal.Decimal // Sum of priced market values
	Exposures     []Exposure
	Breaches      []error
}

// OK reports whether no limit was breached.
func (a Assessment) OK() bool {
	return len(a.Breaches) == 0
}

// RiskManager checks open positions and drawdown against configured limits.
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) *RiskManager {
	return &RiskManager{config: config}
}

// Assess measures each position against equity and collects limit breaches.
// Unpriced positions count toward the open-position limit only.
func (r *RiskManager) Assess(positions []domain.Position, equity decimal.Decimal, drawdown analytics.DrawdownMetrics) Assessment {
	res := Assessment{Equity: equity, TotalExposure: decimal.Zero}

	for _, p := range positions {
		exp := Exposure{Position: p, MarketValue: p.MarketValue(), PercentOfEquity: decimal.Zero}
		if exp.MarketValue.Valid {
			res.TotalExposure = res.TotalExposure.Add(exp.MarketValue.Decimal)
			if equity.IsPositive() {
				exp.PercentOfEquity = exp.MarketValue.Decimal.Div(equity).Mul(hundred).Round(2)
			}
			if r.config.MaxPositionPercent.IsPositive() && exp.PercentOfEquity.GreaterThan(r.config.MaxPositionPercent) {
				res.Breaches = append(res.Breaches, fmt.Errorf("%w: %s at %s%% (limit %s%%)",
					ErrPositionLimit, p.InstrumentKey, exp.PercentOfEquity.StringFixed(2), r.config.MaxPositionPercent.String()))
			}
		}
		res.Exposures = append(res.Exposures, exp)
	}

	if r.config.MaxOpenPositions > 0 && len(positions) > r.config.MaxOpenPositions {
		res.Breaches = append(res.Breaches, fmt.Errorf("%w: %d open (limit %d)",
			ErrOpenPositionsLimit, len(positions), r.config.MaxOpenPositions))
	}

	if r.config.MaxDrawdownPercent.IsPositive() && drawdown.MaxDrawdownPercent.GreaterThan(r.config.MaxDrawdownPercent) {
		res.Breaches = append(res.Breaches, fmt.Errorf("%w: %s%% (limit %s%%)",
			ErrDrawdownLimit, drawdown.MaxDrawdownPercent.StringFixed(2), r.config.MaxDrawdownPercent.String()))
	}
	return res
}
