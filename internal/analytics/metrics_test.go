package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realized(values ...string) []PositionPnL {
	out := make([]PositionPnL, 0, len(values))
	for i, v := range values {
		out = append(out, PositionPnL{
			RealizedPnL: decimal.NewNullDecimal(dec(v)),
			EntryDate:   at(i),
			ExitDate:    at(i + 1),
		})
	}
	return out
}

func curve(values ...int64) []EquityPoint {
	out := make([]EquityPoint, 0, len(values))
	for i, v := range values {
		out = append(out, EquityPoint{Time: at(i), Value: decimal.NewFromInt(v)})
	}
	return out
}

func TestCalculateTradeStatistics(t *testing.T) {
	tests := []struct {
		name         string
		results      []PositionPnL
		total        int
		wins         int
		losses       int
		winRate      string
		avgWin       string
		avgLoss      string
		largestWin   string
		largestLoss  string
		profitFactor string
	}{
		{
			name:         "all winners",
			results:      realized("100", "200", "50"),
			total:        3,
			wins:         3,
			winRate:      "100.00",
			avgWin:       "116.67",
			avgLoss:      "0",
			largestWin:   "200",
			largestLoss:  "0",
			profitFactor: "0",
		},
		{
			name:         "mixed",
			results:      realized("100", "-50", "200", "-100"),
			total:        4,
			wins:         2,
			losses:       2,
			winRate:      "50.00",
			avgWin:       "150.00",
			avgLoss:      "-75.00",
			largestWin:   "200",
			largestLoss:  "-100",
			profitFactor: "2.00",
		},
		{
			name:         "break-even counts toward total only",
			results:      realized("0", "10", "-10"),
			total:        3,
			wins:         1,
			losses:       1,
			winRate:      "33.33",
			avgWin:       "10",
			avgLoss:      "-10",
			largestWin:   "10",
			largestLoss:  "-10",
			profitFactor: "1.00",
		},
		{
			name:         "empty",
			winRate:      "0",
			avgWin:       "0",
			avgLoss:      "0",
			largestWin:   "0",
			largestLoss:  "0",
			profitFactor: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CalculateTradeStatistics(tt.results)
			assert.Equal(t, tt.total, s.TotalTrades)
			assert.Equal(t, tt.wins, s.WinningTrades)
			assert.Equal(t, tt.losses, s.LosingTrades)
			assertDec(t, tt.winRate, s.WinRate, "win rate")
			assertDec(t, tt.avgWin, s.AverageWin, "average win")
			assertDec(t, tt.avgLoss, s.AverageLoss, "average loss")
			assertDec(t, tt.largestWin, s.LargestWin, "largest win")
			assertDec(t, tt.largestLoss, s.LargestLoss, "largest loss")
			assertDec(t, tt.profitFactor, s.ProfitFactor, "profit factor")
		})
	}
}

func TestCalculateTradeStatistics_Averages(t *testing.T) {
	s := CalculateTradeStatistics(realized("100", "200", "-50", "-150"))
	assertDec(t, "150.00", s.AverageWin)
	assertDec(t, "-100.00", s.AverageLoss)
	assertDec(t, "1.50", s.ProfitFactor)

	s = CalculateTradeStatistics(realized("300", "200", "-100"))
	assertDec(t, "5.00", s.ProfitFactor)
}

func TestCalculateMaxDrawdown(t *testing.T) {
	t.Run("single decline", func(t *testing.T) {
		dd := CalculateMaxDrawdown(curve(10000, 11000, 9000, 12000))
		assertDec(t, "2000.00", dd.MaxDrawdownAmount)
		assertDec(t, "18.18", dd.MaxDrawdownPercent)
		assert.True(t, at(1).Equal(dd.PeakDate))
		assert.True(t, at(2).Equal(dd.TroughDate))
	})

	t.Run("later larger decline wins", func(t *testing.T) {
		dd := CalculateMaxDrawdown(curve(10000, 12000, 11000, 15000, 9000, 13000))
		assertDec(t, "6000.00", dd.MaxDrawdownAmount)
		assertDec(t, "40.00", dd.MaxDrawdownPercent)
		assert.True(t, at(3).Equal(dd.PeakDate))
		assert.True(t, at(4).Equal(dd.TroughDate))
	})

	t.Run("earlier larger decline is kept", func(t *testing.T) {
		dd := CalculateMaxDrawdown(curve(10000, 5000, 20000, 19000))
		assertDec(t, "5000.00", dd.MaxDrawdownAmount)
		assertDec(t, "50.00", dd.MaxDrawdownPercent)
		assert.True(t, at(0).Equal(dd.PeakDate))
		assert.True(t, at(1).Equal(dd.TroughDate))
	})

	t.Run("monotonic curve", func(t *testing.T) {
		dd := CalculateMaxDrawdown(curve(100, 200, 300))
		assert.True(t, dd.MaxDrawdownAmount.IsZero())
		assert.True(t, dd.TroughDate.IsZero())
		assert.True(t, at(2).Equal(dd.PeakDate))
	})

	t.Run("empty curve", func(t *testing.T) {
		dd := CalculateMaxDrawdown(nil)
		assert.True(t, dd.MaxDrawdownAmount.IsZero())
		assert.True(t, dd.MaxDrawdownPercent.IsZero())
		assert.True(t, dd.PeakDate.IsZero())
		assert.True(t, dd.TroughDate.IsZero())
	})
}

func TestCalculateSharpeRatio(t *testing.T) {
	rf := DefaultRiskFreeRate

	assert.True(t, CalculateSharpeRatio(nil, rf, DefaultPeriodsPerYear).IsZero())
	assert.True(t, CalculateSharpeRatio([]decimal.Decimal{dec("0.05")}, rf, DefaultPeriodsPerYear).IsZero())
	assert.True(t, CalculateSharpeRatio([]decimal.Decimal{dec("0.01"), dec("0.01")}, rf, DefaultPeriodsPerYear).IsZero(),
		"zero deviation")

	positive := CalculateSharpeRatio([]decimal.Decimal{dec("0.01"), dec("0.02"), dec("0.015")}, rf, DefaultPeriodsPerYear)
	assert.True(t, positive.IsPositive(), positive.String())

	negative := CalculateSharpeRatio([]decimal.Decimal{dec("-0.01"), dec("-0.02"), dec("0.005")}, rf, DefaultPeriodsPerYear)
	assert.True(t, negative.IsNegative(), negative.String())

	// mean 0.1, sample std dev 0.1; (0.1 - 0) / 0.1 = 1 with one period per year.
	one := CalculateSharpeRatio([]decimal.Decimal{dec("0"), dec("0.1"), dec("0.2")}, decimal.Zero, 1)
	assertDec(t, "1.00", one)

	again := CalculateSharpeRatio([]decimal.Decimal{dec("0.01"), dec("0.02"), dec("0.015")}, rf, DefaultPeriodsPerYear)
	assert.True(t, positive.Equal(again))
}

func TestCalculatePortfolioMetrics(t *testing.T) {
	m := CalculatePortfolioMetrics(realized("100", "-50", "200", "-100"), DefaultInitialCapital)

	assertDec(t, "150.00", m.TotalPnL)
	assertDec(t, "1.50", m.TotalReturnPercentage)
	assertDec(t, "50.00", m.WinRate)
	assertDec(t, "2.00", m.ProfitFactor)
	assert.True(t, m.MaxDrawdownPercent.IsZero())
	assert.Equal(t, 4, m.TotalTrades)

	empty := CalculatePortfolioMetrics(nil, DefaultInitialCapital)
	assert.True(t, empty.TotalPnL.IsZero())
	assert.Equal(t, 0, empty.TotalTrades)
}

func TestBuildEquityCurveAndDailyReturns(t *testing.T) {
	results := realized("1000", "-550")
	results = append(results, PositionPnL{UnrealizedPnL: decimal.NewNullDecimal(dec("999"))})

	eq := BuildEquityCurve(dec("10000"), results)
	require.Len(t, eq, 3)
	assert.True(t, at(0).Equal(eq[0].Time))
	assertDec(t, "10000", eq[0].Value)
	assertDec(t, "11000", eq[1].Value)
	assertDec(t, "10450", eq[2].Value)

	returns := DailyReturns(eq)
	require.Len(t, returns, 2)
	assertDec(t, "0.1", returns[0])
	assertDec(t, "-0.05", returns[1])

	assert.Nil(t, BuildEquityCurve(dec("10000"), nil))
	assert.Nil(t, DailyReturns(eq[:1]))
}

func TestDailyReturns_CollapsesIntraday(t *testing.T) {
	eq := []EquityPoint{
		{Time: at(0), Value: dec("100")},
		{Time: at(1), Value: dec("150")},
		{Time: at(1).Add(2 * 60 * 60 * 1e9), Value: dec("110")},
	}
	returns := DailyReturns(eq)
	require.Len(t, returns, 1)
	assertDec(t, "0.1", returns[0])
}
