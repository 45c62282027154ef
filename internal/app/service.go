package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradetracker/config"
	"tradetracker/internal/analytics"
	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
	"tradetracker/internal/risk"
	"tradetracker/internal/utils"
)

// PortfolioService orchestrates trade bookkeeping and report generation.
type PortfolioService struct {
	cfg      *config.Config
	logger   ports.Logger
	trades   ports.TradeRepository
	accounts ports.AccountRepository
	prices   ports.PriceProvider // Optional; open lots stay unmarked without it
	risk     *risk.RiskManager
	now      func() time.Time
}

// NewPortfolioService creates a new application service instance.
func NewPortfolioService(
	cfg *config.Config,
	logger ports.Logger,
	trades ports.TradeRepository,
	accounts ports.AccountRepository,
	prices ports.PriceProvider,
) (*PortfolioService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || trades == nil || accounts == nil {
		return nil, fmt.Errorf("missing required dependencies for PortfolioService")
	}

	// Validate config values needed by service
	if !cfg.InitialCapital.IsPositive() {
		return nil, fmt.Errorf("configuration InitialCapital must be positive")
	}
	if cfg.PeriodsPerYear <= 0 {
		return nil, fmt.Errorf("configuration PeriodsPerYear must be positive")
	}
	if cfg.LongTermDays <= 0 {
		return nil, fmt.Errorf("configuration LongTermDays must be positive")
	}

	return &PortfolioService{
		cfg:      cfg,
		logger:   logger,
		trades:   trades,
		accounts: accounts,
		prices:   prices,
		risk: risk.NewRiskManager(risk.RiskConfig{
			MaxPositionPercent: cfg.MaxPositionPercent,
			MaxDrawdownPercent: cfg.MaxDrawdownPercent,
			MaxOpenPositions:   cfg.MaxOpenPositions,
		}),
		now: time.Now,
	}, nil
}

// --- Trades ---

// RecordTrade validates and stores a single trade.
func (s *PortfolioService) RecordTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	op := "RecordTrade"
	if err := trade.Normalize(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkAccount(ctx, trade.AccountID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.trades.CreateTrade(ctx, trade)
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to store trade", map[string]interface{}{"symbol": trade.Symbol})
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "Trade recorded", map[string]interface{}{
		"tradeID":  id,
		"symbol":   trade.InstrumentKey(),
		"action":   trade.Action,
		"quantity": trade.Quantity,
		"price":    trade.Price.String(),
	})
	return id, nil
}

// ImportOutcome reports what happened to a batch of imported trades.
type ImportOutcome struct {
	Stored []int64
	Errors []error // Parse failures and rejected trades; the rest of the batch is still stored
}

// ImportTrades stores every valid trade of an import batch. A bad record never
// aborts the batch.
func (s *PortfolioService) ImportTrades(ctx context.Context, batch utils.ImportResult, accountID int64) (ImportOutcome, error) {
	op := "ImportTrades"
	var out ImportOutcome
	for _, e := range batch.Errors {
		out.Errors = append(out.Errors, e)
	}

	if err := s.checkAccount(ctx, accountID); err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}

	for i, t := range batch.Trades {
		if t.AccountID == 0 {
			t.AccountID = accountID
		}
		id, err := s.RecordTrade(ctx, t)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			out.Errors = append(out.Errors, fmt.Errorf("trade %d (%s): %w", i+1, t.Symbol, err))
			continue
		}
		out.Stored = append(out.Stored, id)
	}

	s.logger.Info(ctx, "Import finished", map[string]interface{}{
		"stored":   len(out.Stored),
		"rejected": len(out.Errors),
	})
	return out, nil
}

// TagTrade changes the strategy tag of a stored trade.
func (s *PortfolioService) TagTrade(ctx context.Context, id int64, strategy domain.Strategy) error {
	if strategy == "" {
		strategy = domain.StrategyUntagged
	}
	if !strategy.Valid() {
		return fmt.Errorf("TagTrade: %w: unknown strategy %q", domain.ErrInvalidTrade, strategy)
	}
	if err := s.trades.UpdateStrategy(ctx, id, strategy); err != nil {
		return fmt.Errorf("TagTrade: %w", err)
	}
	s.logger.Info(ctx, "Trade tagged", map[string]interface{}{"tradeID": id, "strategy": strategy})
	return nil
}

// DeleteTrade removes a stored trade.
func (s *PortfolioService) DeleteTrade(ctx context.Context, id int64) error {
	if err := s.trades.DeleteTrade(ctx, id); err != nil {
		return fmt.Errorf("DeleteTrade: %w", err)
	}
	s.logger.Info(ctx, "Trade deleted", map[string]interface{}{"tradeID": id})
	return nil
}

// ListTrades returns stored trades in time order.
func (s *PortfolioService) ListTrades(ctx context.Context, filter ports.TradeFilter) ([]*domain.Trade, error) {
	trades, err := s.trades.FindTrades(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ListTrades: %w", err)
	}
	return trades, nil
}

// --- Accounts ---

// AddAccount validates and stores a brokerage account.
func (s *PortfolioService) AddAccount(ctx context.Context, account *domain.Account) (int64, error) {
	if err := account.Validate(); err != nil {
		return 0, fmt.Errorf("AddAccount: %w", err)
	}
	id, err := s.accounts.CreateAccount(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("AddAccount: %w", err)
	}
	s.logger.Info(ctx, "Account added", map[string]interface{}{"accountID": id, "broker": account.Broker})
	return id, nil
}

// ListAccounts returns all accounts ordered by name.
func (s *PortfolioService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.accounts.FindAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

func (s *PortfolioService) checkAccount(ctx context.Context, id int64) error {
	if id == 0 {
		return nil
	}
	acc, err := s.accounts.FindAccountByID(ctx, id)
	if err != nil {
		return err
	}
	if acc == nil {
		return fmt.Errorf("account %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// CheckPrices pings the configured price source.
func (s *PortfolioService) CheckPrices(ctx context.Context) error {
	if s.prices == nil {
		return fmt.Errorf("%w: no price source configured", ports.ErrConfigurationError)
	}
	return s.prices.Ping(ctx)
}

// --- Reports ---

// PairFailure records a matched pair whose P&L could not be computed.
type PairFailure struct {
	Pair analytics.TradePair
	Err  error
}

// Report is the full analytics view over a set of trades.
type Report struct {
	AsOf    time.Time
	Trades  []*domain.Trade // Trades matching the filter
	History []*domain.Trade // Every trade in the filter's symbol and account scope

	Closed   []analytics.PositionPnL // Matched pairs and expired options
	Open     []analytics.PositionPnL // Lots marked to market
	Unpriced []analytics.OpenLot     // Lots without a price
	Failures []PairFailure

	Statistics    analytics.TradeStatistics
	Metrics       analytics.PortfolioMetrics
	Drawdown      analytics.DrawdownMetrics
	EquityCurve   []analytics.EquityPoint
	UnrealizedPnL decimal.Decimal

	Daily   []analytics.PeriodPnL
	Weekly  []analytics.PeriodPnL
	Monthly []analytics.PeriodPnL
	Yearly  []analytics.PeriodPnL

	Strategies      analytics.StrategyComparison
	StrategySummary analytics.StrategySummary

	Positions []domain.Position // Open lots folded per instrument
	Risk      risk.Assessment
}

// Results returns closed and open results together.
func (r *Report) Results() []analytics.PositionPnL {
	all := make([]analytics.PositionPnL, 0, len(r.Closed)+len(r.Open))
	all = append(all, r.Closed...)
	return append(all, r.Open...)
}

// BuildReport matches the full history of the filter's symbol and account
// scope, then keeps the closed results whose exit falls in the filter's date
// window and the open lots opened before its end. A strategy filter selects
// results by the tag of their opening trade. Option lots whose expiry is
// before asOf expire worthless; other open lots are marked with the price
// provider when one is configured. A zero asOf means now.
func (s *PortfolioService) BuildReport(ctx context.Context, filter ports.TradeFilter, asOf time.Time) (*Report, error) {
	op := "BuildReport"
	if asOf.IsZero() {
		asOf = s.now()
	}

	history, err := s.trades.FindTrades(ctx, filter.Scope())
	if err != nil {
		s.logger.Error(ctx, err, op+": Failed to load trades")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rep := &Report{AsOf: asOf, History: history, UnrealizedPnL: decimal.Zero}
	for _, t := range history {
		if filter.Matches(t) {
			rep.Trades = append(rep.Trades, t)
		}
	}

	matched := analytics.MatchFIFO(history)
	marks := make(map[string]decimal.Decimal)
	missing := make(map[string]bool)
	var open []analytics.OpenLot

	for _, pair := range matched.Pairs {
		if !closedInReport(filter, pair.Opening, pair.Closing.Timestamp) {
			continue
		}
		res, err := analytics.CalculatePairPnL(pair)
		if err != nil {
			s.logger.Warn(ctx, "Skipping pair", map[string]interface{}{"pairID": pair.ID, "error": err.Error()})
			rep.Failures = append(rep.Failures, PairFailure{Pair: pair, Err: err})
			continue
		}
		rep.Closed = append(rep.Closed, res)
	}

	for _, lot := range matched.OpenLots {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if lot.Trade.Option != nil && lot.Trade.Option.Expiry.Before(asOf) {
			if !closedInReport(filter, lot.Trade, lot.Trade.Option.Expiry) {
				continue
			}
			res, err := analytics.CalculateLotExpiryPnL(lot, true)
			if err != nil {
				s.logger.Warn(ctx, "Skipping expired lot", map[string]interface{}{"trade": lot.Trade.Key(), "error": err.Error()})
				continue
			}
			rep.Closed = append(rep.Closed, res)
			continue
		}
		if !openInReport(filter, lot.Trade) {
			continue
		}
		open = append(open, lot)
		s.markLot(ctx, rep, lot, marks, missing)
	}

	rep.Statistics = analytics.CalculateTradeStatistics(rep.Closed)
	rep.Metrics = analytics.CalculatePortfolioMetrics(rep.Closed, s.cfg.InitialCapital)
	rep.EquityCurve = analytics.BuildEquityCurve(s.cfg.InitialCapital, rep.Closed)
	rep.Drawdown = analytics.CalculateMaxDrawdown(rep.EquityCurve)
	rep.Metrics.MaxDrawdownPercent = rep.Drawdown.MaxDrawdownPercent
	rep.Metrics.SharpeRatio = analytics.CalculateSharpeRatio(
		analytics.DailyReturns(rep.EquityCurve), s.cfg.RiskFreeRate, s.cfg.PeriodsPerYear)

	entries := analytics.RealizedEntries(rep.Closed)
	rep.Daily = analytics.SortedDaily(entries)
	rep.Weekly = analytics.SortedWeekly(entries)
	rep.Monthly = analytics.SortedMonthly(entries)
	rep.Yearly = analytics.SortedYearly(entries)

	all := rep.Results()
	rep.Strategies = analytics.CompareStrategies(history, all)
	rep.StrategySummary = analytics.GetStrategySummary(history, all)

	rep.Positions = analytics.AggregatePositions(open, marks)
	equity := s.cfg.InitialCapital.Add(rep.Metrics.TotalPnL).Add(rep.UnrealizedPnL)
	rep.Risk = s.risk.Assess(rep.Positions, equity, rep.Drawdown)
	for _, breach := range rep.Risk.Breaches {
		s.logger.Warn(ctx, "Risk limit breached", map[string]interface{}{"error": breach.Error()})
	}

	s.logger.Info(ctx, "Report built", map[string]interface{}{
		"trades":   len(rep.Trades),
		"closed":   len(rep.Closed),
		"open":     len(rep.Open),
		"unpriced": len(rep.Unpriced),
		"failures": len(rep.Failures),
		"totalPnL": rep.Metrics.TotalPnL.String(),
	})
	return rep, nil
}

// markLot prices an open lot by instrument key. Each instrument is looked up
// at most once per report; misses are remembered in missing.
func (s *PortfolioService) markLot(ctx context.Context, rep *Report, lot analytics.OpenLot, marks map[string]decimal.Decimal, missing map[string]bool) {
	if s.prices == nil {
		rep.Unpriced = append(rep.Unpriced, lot)
		return
	}
	key := lot.Trade.InstrumentKey()
	if missing[key] {
		rep.Unpriced = append(rep.Unpriced, lot)
		return
	}
	price, ok := marks[key]
	if !ok {
		var err error
		price, err = s.prices.GetPrice(ctx, key)
		if err != nil {
			s.logger.Warn(ctx, "No market price for open lot", map[string]interface{}{"instrument": key, "error": err.Error()})
			missing[key] = true
			rep.Unpriced = append(rep.Unpriced, lot)
			return
		}
		marks[key] = price
	}
	res := analytics.CalculateUnrealizedLotPnL(lot, price)
	rep.Open = append(rep.Open, res)
	rep.UnrealizedPnL = rep.UnrealizedPnL.Add(res.UnrealizedPnL.Decimal)
}

// closedInReport selects a realized result by its exit time and the tag of its
// opening trade.
func closedInReport(filter ports.TradeFilter, opening *domain.Trade, exit time.Time) bool {
	if filter.Strategy != "" && opening.Strategy != filter.Strategy {
		return false
	}
	return filter.InWindow(exit)
}

// openInReport selects a lot still held at the end of the filter's window.
func openInReport(filter ports.TradeFilter, opening *domain.Trade) bool {
	if filter.Strategy != "" && opening.Strategy != filter.Strategy {
		return false
	}
	return filter.To.IsZero() || opening.Timestamp.Before(filter.To)
}
