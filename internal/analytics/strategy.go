package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradetracker/internal/domain"
)

// StrategyPerformance aggregates the P&L results attributed to one strategy tag.
// Each result counts as one trade.
type StrategyPerformance struct {
	Strategy      domain.Strategy
	Name          string
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       decimal.Decimal
	TotalPnL      decimal.Decimal
	RealizedPnL   decimal.Decimal
	AveragePnL    decimal.Decimal
	MaxWin        decimal.Decimal // Largest result, may be negative
	MaxLoss       decimal.Decimal // Smallest result, may be positive
}

// StrategyComparison bundles the ranked strategies with the extremes.
type StrategyComparison struct {
	Strategies      []StrategyPerformance
	Best            *StrategyPerformance
	Worst           *StrategyPerformance
	MostUsed        *StrategyPerformance
	TotalStrategies int
}

// StrategySummary condenses the ranked strategies into a few headline numbers.
type StrategySummary struct {
	TotalStrategiesUsed       int
	AverageWinRate            decimal.Decimal
	BestWinRate               decimal.Decimal
	StrategiesWithPositivePnL int
}

// AnalyzeByStrategy attributes each result to the strategy tag of its opening
// trade, looked up by OpeningTradeKey, so edits to a tag are reflected without
// recomputing P&L. Results whose opening trade is not among trades are ignored
// and strategies with no results are omitted. Every result counts, so the
// bucket totals add up to the flat total. The output is ordered by total P&L descending; ties keep the order
// in which strategies first appear in trades.
func AnalyzeByStrategy(trades []*domain.Trade, results []PositionPnL) []StrategyPerformance {
	if len(trades) == 0 {
		return nil
	}

	tagByKey := make(map[string]domain.Strategy, len(trades))
	var order []domain.Strategy
	seenTag := make(map[domain.Strategy]bool)
	for _, t := range trades {
		if t == nil {
			continue
		}
		tag := strategyOf(t)
		tagByKey[t.Key()] = tag
		if !seenTag[tag] {
			seenTag[tag] = true
			order = append(order, tag)
		}
	}

	grouped := make(map[domain.Strategy][]PositionPnL)
	for _, r := range results {
		tag, ok := tagByKey[r.OpeningTradeKey]
		if !ok {
			continue
		}
		grouped[tag] = append(grouped[tag], r)
	}

	var out []StrategyPerformance
	for _, tag := range order {
		group := grouped[tag]
		if len(group) == 0 {
			continue
		}
		out = append(out, strategyPerformance(tag, group))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPnL.GreaterThan(out[j].TotalPnL)
	})
	return out
}

func strategyPerformance(tag domain.Strategy, group []PositionPnL) StrategyPerformance {
	totals := make([]decimal.Decimal, 0, len(group))
	realized := decimal.Zero
	wins, losses := 0, 0
	for _, r := range group {
		total := r.TotalPnL()
		totals = append(totals, total)
		if r.RealizedPnL.Valid {
			realized = realized.Add(r.RealizedPnL.Decimal)
		}
		switch total.Sign() {
		case 1:
			wins++
		case -1:
			losses++
		}
	}

	count := decimal.NewFromInt(int64(len(group)))
	total := sum(totals)
	return StrategyPerformance{
		Strategy:      tag,
		Name:          tag.DisplayName(),
		TotalTrades:   len(group),
		WinningTrades: wins,
		LosingTrades:  losses,
		WinRate:       round2(percentOf(decimal.NewFromInt(int64(wins)), count)),
		TotalPnL:      round2(total),
		RealizedPnL:   round2(realized),
		AveragePnL:    round2(total.Div(count)),
		MaxWin:        decimal.Max(totals[0], totals[1:]...),
		MaxLoss:       decimal.Min(totals[0], totals[1:]...),
	}
}

// BestStrategy returns the most profitable strategy, or false if none qualify.
func BestStrategy(trades []*domain.Trade, results []PositionPnL) (StrategyPerformance, bool) {
	ranked := AnalyzeByStrategy(trades, results)
	if len(ranked) == 0 {
		return StrategyPerformance{}, false
	}
	return ranked[0], true
}

// WorstStrategy returns the least profitable strategy, or false if none qualify.
func WorstStrategy(trades []*domain.Trade, results []PositionPnL) (StrategyPerformance, bool) {
	ranked := AnalyzeByStrategy(trades, results)
	if len(ranked) == 0 {
		return StrategyPerformance{}, false
	}
	return ranked[len(ranked)-1], true
}

// CompareStrategies ranks all strategies and picks out the best, the worst and
// the most used. On equal usage the higher-ranked strategy wins.
func CompareStrategies(trades []*domain.Trade, results []PositionPnL) StrategyComparison {
	ranked := AnalyzeByStrategy(trades, results)
	if len(ranked) == 0 {
		return StrategyComparison{}
	}

	mostUsed := 0
	for i, s := range ranked {
		if s.TotalTrades > ranked[mostUsed].TotalTrades {
			mostUsed = i
		}
	}
	return StrategyComparison{
		Strategies:      ranked,
		Best:            &ranked[0],
		Worst:           &ranked[len(ranked)-1],
		MostUsed:        &ranked[mostUsed],
		TotalStrategies: len(ranked),
	}
}

// GetStrategySummary reports the average and best win rate and how many
// strategies are net profitable.
func GetStrategySummary(trades []*domain.Trade, results []PositionPnL) StrategySummary {
	ranked := AnalyzeByStrategy(trades, results)
	summary := StrategySummary{AverageWinRate: decimal.Zero, BestWinRate: decimal.Zero}
	if len(ranked) == 0 {
		return summary
	}

	rates := make([]decimal.Decimal, 0, len(ranked))
	for _, s := range ranked {
		rates = append(rates, s.WinRate)
		if s.TotalPnL.IsPositive() {
			summary.StrategiesWithPositivePnL++
		}
	}
	summary.TotalStrategiesUsed = len(ranked)
	summary.AverageWinRate = round2(mean(rates))
	summary.BestWinRate = decimal.Max(rates[0], rates[1:]...)
	return summary
}
