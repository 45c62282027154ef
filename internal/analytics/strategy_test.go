package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradetracker/internal/domain"
)

type strategyFixture struct {
	trades  []*domain.Trade
	results []PositionPnL
}

// newStrategyFixture builds two winning day trades on AAPL and one losing
// swing trade on the same symbol, then prices them through the matcher.
func newStrategyFixture(t *testing.T) strategyFixture {
	t.Helper()
	tagged := func(tr *domain.Trade, s domain.Strategy) *domain.Trade {
		tr.Strategy = s
		return tr
	}
	trades := []*domain.Trade{
		tagged(stock(t, 1, domain.ActionBuy, 10, "100", "0", at(0)), domain.StrategyDayTrade),
		tagged(stock(t, 2, domain.ActionSell, 10, "110", "0", at(0).Add(3600e9)), domain.StrategyDayTrade),
		tagged(stock(t, 3, domain.ActionBuy, 10, "100", "0", at(1)), domain.StrategyDayTrade),
		tagged(stock(t, 4, domain.ActionSell, 10, "105", "0", at(1).Add(3600e9)), domain.StrategyDayTrade),
		tagged(stock(t, 5, domain.ActionBuy, 10, "100", "0", at(2)), domain.StrategySwingTrade),
		tagged(stock(t, 6, domain.ActionSell, 10, "90", "0", at(9)), domain.StrategySwingTrade),
	}

	var results []PositionPnL
	for _, p := range MatchFIFO(trades).Pairs {
		res, err := CalculatePairPnL(p)
		require.NoError(t, err)
		results = append(results, res)
	}
	return strategyFixture{trades: trades, results: results}
}

func TestAnalyzeByStrategy(t *testing.T) {
	f := newStrategyFixture(t)

	ranked := AnalyzeByStrategy(f.trades, f.results)
	require.Len(t, ranked, 2)

	day := ranked[0]
	assert.Equal(t, domain.StrategyDayTrade, day.Strategy)
	assert.Equal(t, "Day Trade", day.Name)
	assert.Equal(t, 2, day.TotalTrades)
	assert.Equal(t, 2, day.WinningTrades)
	assertDec(t, "100.00", day.WinRate)
	assertDec(t, "150.00", day.TotalPnL)
	assertDec(t, "75.00", day.AveragePnL)
	assertDec(t, "100", day.MaxWin)
	assertDec(t, "50", day.MaxLoss)

	swing := ranked[1]
	assert.Equal(t, domain.StrategySwingTrade, swing.Strategy)
	assert.Equal(t, 1, swing.LosingTrades)
	assertDec(t, "-100.00", swing.TotalPnL)
	assertDec(t, "0", swing.WinRate)
}

func TestAnalyzeByStrategy_RoundTripMatchesFlatSum(t *testing.T) {
	f := newStrategyFixture(t)

	flat := decimal.Zero
	for _, r := range f.results {
		flat = flat.Add(r.RealizedPnL.Decimal)
	}
	bucketed := decimal.Zero
	for _, s := range AnalyzeByStrategy(f.trades, f.results) {
		bucketed = bucketed.Add(s.RealizedPnL)
	}
	assert.True(t, flat.Equal(bucketed), "flat %s, bucketed %s", flat, bucketed)
}

func TestAnalyzeByStrategy_SkipsUnknown(t *testing.T) {
	f := newStrategyFixture(t)

	results := append([]PositionPnL{}, f.results...)
	results = append(results, PositionPnL{PairID: "orphan", OpeningTradeKey: "id:999",
		RealizedPnL: decimal.NewNullDecimal(dec("1000"))})

	ranked := AnalyzeByStrategy(f.trades, results)
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].TotalTrades)
	assertDec(t, "150.00", ranked[0].TotalPnL)
}

func TestAnalyzeByStrategy_UsesCurrentTags(t *testing.T) {
	f := newStrategyFixture(t)

	// Re-tag the losing swing trade after P&L was computed.
	f.trades[4].Strategy = domain.StrategyMomentum
	ranked := AnalyzeByStrategy(f.trades, f.results)
	require.Len(t, ranked, 2)
	assert.Equal(t, domain.StrategyMomentum, ranked[1].Strategy)
}

func TestAnalyzeByStrategy_IncludesUnrealized(t *testing.T) {
	buy := stock(t, 1, domain.ActionBuy, 10, "100", "0", at(0))
	open := CalculateUnrealizedStockPnL(buy, dec("103"))

	ranked := AnalyzeByStrategy([]*domain.Trade{buy}, []PositionPnL{open})
	require.Len(t, ranked, 1)
	assert.Equal(t, domain.StrategyUntagged, ranked[0].Strategy)
	assertDec(t, "30.00", ranked[0].TotalPnL)
	assertDec(t, "0", ranked[0].RealizedPnL)
}

func TestBestAndWorstStrategy(t *testing.T) {
	f := newStrategyFixture(t)

	best, ok := BestStrategy(f.trades, f.results)
	require.True(t, ok)
	assert.Equal(t, domain.StrategyDayTrade, best.Strategy)

	worst, ok := WorstStrategy(f.trades, f.results)
	require.True(t, ok)
	assert.Equal(t, domain.StrategySwingTrade, worst.Strategy)

	_, ok = BestStrategy(nil, f.results)
	assert.False(t, ok)
	_, ok = WorstStrategy(f.trades, nil)
	assert.False(t, ok)
}

func TestCompareStrategies(t *testing.T) {
	f := newStrategyFixture(t)

	cmp := CompareStrategies(f.trades, f.results)
	assert.Equal(t, 2, cmp.TotalStrategies)
	require.NotNil(t, cmp.Best)
	require.NotNil(t, cmp.Worst)
	require.NotNil(t, cmp.MostUsed)
	assert.Equal(t, domain.StrategyDayTrade, cmp.Best.Strategy)
	assert.Equal(t, domain.StrategySwingTrade, cmp.Worst.Strategy)
	assert.Equal(t, domain.StrategyDayTrade, cmp.MostUsed.Strategy)

	empty := CompareStrategies(nil, nil)
	assert.Equal(t, 0, empty.TotalStrategies)
	assert.Nil(t, empty.Best)
}

func TestGetStrategySummary(t *testing.T) {
	f := newStrategyFixture(t)

	s := GetStrategySummary(f.trades, f.results)
	assert.Equal(t, 2, s.TotalStrategiesUsed)
	assertDec(t, "50.00", s.AverageWinRate)
	assertDec(t, "100.00", s.BestWinRate)
	assert.Equal(t, 1, s.StrategiesWithPositivePnL)

	empty := GetStrategySummary(nil, nil)
	assert.Equal(t, 0, empty.TotalStrategiesUsed)
	assert.True(t, empty.AverageWinRate.IsZero())
}

func TestAnalyzeByStrategy_IdenticalUnsavedFills(t *testing.T) {
	// Two fills with the same fields and no ID, closed by one sell.
	trades := []*domain.Trade{
		stock(t, 0, domain.ActionBuy, 100, "150", "0", at(0)),
		stock(t, 0, domain.ActionBuy, 100, "150", "0", at(0)),
		stock(t, 0, domain.ActionSell, 200, "160", "0", at(1)),
	}
	for _, tr := range trades {
		tr.Strategy = domain.StrategyDayTrade
	}
	require.Equal(t, trades[0].Key(), trades[1].Key())

	pairs := MatchFIFO(trades).Pairs
	require.Len(t, pairs, 2)
	assert.NotEqual(t, pairs[0].ID, pairs[1].ID)

	var results []PositionPnL
	flat := decimal.Zero
	for _, p := range pairs {
		res, err := CalculatePairPnL(p)
		require.NoError(t, err)
		results = append(results, res)
		flat = flat.Add(res.RealizedPnL.Decimal)
	}
	assertDec(t, "2000", flat)

	ranked := AnalyzeByStrategy(trades, results)
	require.Len(t, ranked, 1)
	assert.Equal(t, 2, ranked[0].TotalTrades)
	assertDec(t, "2000.00", ranked[0].TotalPnL)
	assertDec(t, "2000.00", ranked[0].RealizedPnL)
}
