package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPeriodsPerYear annualizes daily returns (trading days).
	DefaultPeriodsPerYear = 252
)

var (
	// DefaultRiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
	DefaultRiskFreeRate = decimal.RequireFromString("0.02")
	// DefaultInitialCapital is the starting capital for return and equity calculations.
	DefaultInitialCapital = decimal.NewFromInt(10000)
)

// TradeStatistics aggregates win/loss figures over a set of P&L results.
type TradeStatistics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal // Percent
	AverageWin    decimal.Decimal
	AverageLoss   decimal.Decimal // Negative or zero
	LargestWin    decimal.Decimal
	LargestLoss   decimal.Decimal // Most negative loss, zero if none
	ProfitFactor  decimal.Decimal // Gross profit / |gross loss|, zero if no losses
}

// DrawdownMetrics describes the largest peak-to-trough decline of an equity curve.
type DrawdownMetrics struct {
	MaxDrawdownAmount  decimal.Decimal
	MaxDrawdownPercent decimal.Decimal
	PeakDate           time.Time // Zero if the curve is empty
	TroughDate         time.Time // Zero if the curve never declined
}

// EquityPoint represents a point on the equity curve.
type EquityPoint struct {
	Time  time.Time
	Value decimal.Decimal
}

// PortfolioMetrics summarizes a set of P&L results against an initial capital.
// MaxDrawdownPercent and SharpeRatio are left zero; they need an equity curve
// and a return series, see CalculateMaxDrawdown and CalculateSharpeRatio.
type PortfolioMetrics struct {
	TotalPnL              decimal.Decimal
	TotalReturnPercentage decimal.Decimal
	WinRate               decimal.Decimal
	ProfitFactor          decimal.Decimal
	SharpeRatio           decimal.Decimal
	MaxDrawdownPercent    decimal.Decimal
	TotalTrades           int
	WinningTrades         int
	LosingTrades          int
}

// CalculateTradeStatistics partitions results by the sign of their realized P&L.
// Break-even and unrealized results count toward the total only.
func CalculateTradeStatistics(results []PositionPnL) TradeStatistics {
	if len(results) == 0 {
		return TradeStatistics{
			WinRate:      decimal.Zero,
			AverageWin:   decimal.Zero,
			AverageLoss:  decimal.Zero,
			LargestWin:   decimal.Zero,
			LargestLoss:  decimal.Zero,
			ProfitFactor: decimal.Zero,
		}
	}

	var wins, losses []decimal.Decimal
	for _, r := range results {
		if !r.RealizedPnL.Valid {
			continue
		}
		switch r.RealizedPnL.Decimal.Sign() {
		case 1:
			wins = append(wins, r.RealizedPnL.Decimal)
		case -1:
			losses = append(losses, r.RealizedPnL.Decimal)
		}
	}

	stats := TradeStatistics{
		TotalTrades:   len(results),
		WinningTrades: len(wins),
		LosingTrades:  len(losses),
		WinRate:       round2(percentOf(decimal.NewFromInt(int64(len(wins))), decimal.NewFromInt(int64(len(results))))),
		AverageWin:    round2(mean(wins)),
		AverageLoss:   round2(mean(losses)),
		LargestWin:    decimal.Zero,
		LargestLoss:   decimal.Zero,
		ProfitFactor:  decimal.Zero,
	}
	if len(wins) > 0 {
		stats.LargestWin = round2(decimal.Max(wins[0], wins[1:]...))
	}
	if len(losses) > 0 {
		stats.LargestLoss = round2(decimal.Min(losses[0], losses[1:]...))
	}

	grossProfit := sum(wins)
	grossLoss := sum(losses).Abs()
	if grossLoss.IsPositive() {
		stats.ProfitFactor = round2(grossProfit.Div(grossLoss))
	}
	return stats
}

// CalculateMaxDrawdown makes one forward pass over the curve tracking the running
// peak. The reported peak and trough are the pair that produced the largest
// decline; the percentage is measured against that peak.
func CalculateMaxDrawdown(curve []EquityPoint) DrawdownMetrics {
	if len(curve) == 0 {
		return DrawdownMetrics{MaxDrawdownAmount: decimal.Zero, MaxDrawdownPercent: decimal.Zero}
	}

	maxAmount := decimal.Zero
	maxPercent := decimal.Zero
	peak := curve[0].Value
	peakDate := curve[0].Time
	var ddPeakDate, troughDate time.Time

	for _, p := range curve {
		if p.Value.GreaterThan(peak) {
			peak = p.Value
			peakDate = p.Time
		}
		drawdown := peak.Sub(p.Value)
		if drawdown.GreaterThan(maxAmount) {
			maxAmount = drawdown
			troughDate = p.Time
			ddPeakDate = peakDate
			maxPercent = decimal.Zero
			if peak.IsPositive() {
				maxPercent = drawdown.Div(peak).Mul(hundred)
			}
		}
	}

	res := DrawdownMetrics{
		MaxDrawdownAmount:  round2(maxAmount),
		MaxDrawdownPercent: round2(maxPercent),
		PeakDate:           peakDate,
		TroughDate:         troughDate,
	}
	if !troughDate.IsZero() {
		res.PeakDate = ddPeakDate
	}
	return res
}

// CalculateSharpeRatio annualizes the mean and sample standard deviation of
// per-period returns (decimals, 0.05 for 5%) and returns
// (annual return - riskFreeRate) / annual std dev, rounded to two places.
// Fewer than two returns or zero deviation yields zero.
func CalculateSharpeRatio(returns []decimal.Decimal, riskFreeRate decimal.Decimal, periodsPerYear int) decimal.Decimal {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return decimal.Zero
	}

	avg := mean(returns)
	squares := decimal.Zero
	for _, r := range returns {
		diff := r.Sub(avg)
		squares = squares.Add(diff.Mul(diff))
	}
	variance := squares.Div(decimal.NewFromInt(int64(len(returns) - 1)))
	stdDev := sqrt(variance)
	if stdDev.IsZero() {
		return decimal.Zero
	}

	periods := decimal.NewFromInt(int64(periodsPerYear))
	annualReturn := avg.Mul(periods)
	annualStdDev := stdDev.Mul(sqrt(periods))
	return round2(annualReturn.Sub(riskFreeRate).Div(annualStdDev))
}

// CalculatePortfolioMetrics wraps CalculateTradeStatistics with total realized
// P&L and the return on initialCapital.
func CalculatePortfolioMetrics(results []PositionPnL, initialCapital decimal.Decimal) PortfolioMetrics {
	zero := PortfolioMetrics{
		TotalPnL:              decimal.Zero,
		TotalReturnPercentage: decimal.Zero,
		WinRate:               decimal.Zero,
		ProfitFactor:          decimal.Zero,
		SharpeRatio:           decimal.Zero,
		MaxDrawdownPercent:    decimal.Zero,
	}
	if len(results) == 0 {
		return zero
	}

	stats := CalculateTradeStatistics(results)
	total := decimal.Zero
	for _, r := range results {
		if r.RealizedPnL.Valid {
			total = total.Add(r.RealizedPnL.Decimal)
		}
	}

	m := zero
	m.TotalPnL = round2(total)
	if initialCapital.IsPositive() {
		m.TotalReturnPercentage = round2(total.Div(initialCapital).Mul(hundred))
	}
	m.WinRate = stats.WinRate
	m.ProfitFactor = stats.ProfitFactor
	m.TotalTrades = stats.TotalTrades
	m.WinningTrades = stats.WinningTrades
	m.LosingTrades = stats.LosingTrades
	return m
}

// BuildEquityCurve starts at initialCapital on the earliest entry date and adds
// each realized result at its exit date, in exit order. Open results are ignored.
func BuildEquityCurve(initialCapital decimal.Decimal, results []PositionPnL) []EquityPoint {
	closed := make([]PositionPnL, 0, len(results))
	for _, r := range results {
		if r.RealizedPnL.Valid {
			closed = append(closed, r)
		}
	}
	if len(closed) == 0 {
		return nil
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitDate.Before(closed[j].ExitDate)
	})

	start := closed[0].EntryDate
	for _, r := range closed {
		if !r.EntryDate.IsZero() && (start.IsZero() || r.EntryDate.Before(start)) {
			start = r.EntryDate
		}
	}
	if start.IsZero() || start.After(closed[0].ExitDate) {
		start = closed[0].ExitDate
	}

	curve := make([]EquityPoint, 0, len(closed)+1)
	curve = append(curve, EquityPoint{Time: start, Value: initialCapital})
	equity := initialCapital
	for _, r := range closed {
		equity = equity.Add(r.RealizedPnL.Decimal)
		curve = append(curve, EquityPoint{Time: r.ExitDate, Value: equity})
	}
	return curve
}

// DailyReturns collapses the curve to end-of-day equity and returns the change
// of each day relative to the previous day's close. The first point seeds the
// series; days following a zero equity are skipped.
func DailyReturns(curve []EquityPoint) []decimal.Decimal {
	if len(curve) < 2 {
		return nil
	}

	type dayClose struct {
		day   DayKey
		value decimal.Decimal
	}
	closes := []dayClose{{day: dayKey(curve[0].Time), value: curve[0].Value}}
	for _, p := range curve[1:] {
		d := dayKey(p.Time)
		if last := &closes[len(closes)-1]; last.day == d {
			last.value = p.Value
			continue
		}
		closes = append(closes, dayClose{day: d, value: p.Value})
	}

	returns := make([]decimal.Decimal, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1].value
		if prev.IsZero() {
			continue
		}
		returns = append(returns, closes[i].value.Sub(prev).Div(prev))
	}
	return returns
}
