package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"tradetracker/config"
	"tradetracker/internal/analytics"
	"tradetracker/internal/domain"
	"tradetracker/internal/utils"
)

// analyze_trades prints summary statistics for trade files without touching
// the database. Arguments are .csv/.yaml trade files or directories of them.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{cfg.ExportDir}
	}
	files, err := findTradeFiles(args)
	if err != nil {
		log.Fatalf("Error finding trade files: %v", err)
	}
	if len(files) == 0 {
		log.Println("No trade files found. Pass .csv or .yaml trade files or a directory containing them.")
		return
	}

	asOf := time.Now()
	var analyses []fileAnalysis
	for _, file := range files {
		a, err := analyzeFile(file, cfg.InitialCapital, asOf)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}
		analyses = append(analyses, a)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "File\tTrades\tClosed\tWinRate\tAvgWin\tAvgLoss\tTotalPnL\tMaxDD%\tPF\t")
	for _, a := range analyses {
		s := a.stats
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			filepath.Base(a.file),
			a.trades,
			s.TotalTrades,
			s.WinRate.StringFixed(2),
			s.AverageWin.StringFixed(2),
			s.AverageLoss.StringFixed(2),
			a.metrics.TotalPnL.StringFixed(2),
			a.drawdown.MaxDrawdownPercent.StringFixed(2),
			s.ProfitFactor.StringFixed(2),
		)
	}
	w.Flush()

	fmt.Println("\n## Strategy Breakdown")
	for _, a := range analyses {
		printStrategies(a)
	}
}

// fileAnalysis holds the closed-trade figures for one file.
type fileAnalysis struct {
	file       string
	trades     int
	skipped    int
	open       int
	stats      analytics.TradeStatistics
	metrics    analytics.PortfolioMetrics
	drawdown   analytics.DrawdownMetrics
	strategies []analytics.StrategyPerformance
}

// analyzeFile matches the trades of one file. Options that expired before
// asOf close worthless; other open lots are only counted.
func analyzeFile(path string, capital decimal.Decimal, asOf time.Time) (fileAnalysis, error) {
	batch, err := utils.ReadTradesFile(path)
	if err != nil {
		return fileAnalysis{}, err
	}
	for i, t := range batch.Trades {
		t.ID = int64(i + 1)
	}

	a := fileAnalysis{file: path, trades: len(batch.Trades), skipped: len(batch.Errors)}
	matched := analytics.MatchFIFO(batch.Trades)

	var closed []analytics.PositionPnL
	for _, pair := range matched.Pairs {
		res, err := analytics.CalculatePairPnL(pair)
		if err != nil {
			a.skipped++
			continue
		}
		closed = append(closed, res)
	}
	for _, lot := range matched.OpenLots {
		if lot.Trade.Option == nil || !lot.Trade.Option.Expiry.Before(asOf) {
			a.open++
			continue
		}
		res, err := analytics.CalculateLotExpiryPnL(lot, true)
		if err != nil {
			a.skipped++
			continue
		}
		closed = append(closed, res)
	}

	a.stats = analytics.CalculateTradeStatistics(closed)
	a.metrics = analytics.CalculatePortfolioMetrics(closed, capital)
	a.drawdown = analytics.CalculateMaxDrawdown(analytics.BuildEquityCurve(capital, closed))
	a.strategies = analytics.AnalyzeByStrategy(batch.Trades, closed)
	return a, nil
}

func printStrategies(a fileAnalysis) {
	fmt.Printf("\nFile: %s (%d open lots, %d rows skipped)\n", filepath.Base(a.file), a.open, a.skipped)
	if len(a.strategies) == 0 {
		fmt.Println("No closed trades")
		return
	}
	fmt.Println("Strategy\tTrades\tTotal PnL\tAvg PnL")
	for _, s := range a.strategies {
		fmt.Printf("%s\t%d\t%s\t%s\n", s.Name, s.TotalTrades, s.TotalPnL.StringFixed(2), s.AveragePnL.StringFixed(2))
	}
	if untagged := countUntagged(a.strategies); untagged > 0 {
		fmt.Printf("%d trades carry no strategy tag\n", untagged)
	}
}

func countUntagged(perf []analytics.StrategyPerformance) int {
	for _, s := range perf {
		if s.Strategy == domain.StrategyUntagged {
			return s.TotalTrades
		}
	}
	return 0
}

// findTradeFiles expands directories into the trade files they contain.
func findTradeFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isTradeFile(entry.Name()) {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return files, nil
}

func isTradeFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".yaml", ".yml":
		return true
	}
	return false
}
