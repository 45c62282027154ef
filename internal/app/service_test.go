package app

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradetracker/config"
	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
	"tradetracker/internal/risk"
	"tradetracker/internal/utils"
)

// Mock implementations
type mockLogger struct {
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

// mockStore is an in-memory trade and account repository.
type mockStore struct {
	trades   map[int64]*domain.Trade
	accounts map[int64]*domain.Account
	nextID   int64
	findErr  error
}

func newMockStore() *mockStore {
	return &mockStore{trades: map[int64]*domain.Trade{}, accounts: map[int64]*domain.Account{}}
}

func (m *mockStore) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.nextID++
	trade.ID = m.nextID
	m.trades[trade.ID] = trade
	return trade.ID, nil
}

func (m *mockStore) FindTradeByID(ctx context.Context, id int64) (*domain.Trade, error) {
	return m.trades[id], nil
}

func (m *mockStore) FindTrades(ctx context.Context, filter ports.TradeFilter) ([]*domain.Trade, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*domain.Trade
	for _, t := range m.trades {
		if !filter.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *mockStore) FindBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error) {
	return m.FindTrades(ctx, ports.TradeFilter{Symbol: symbol})
}

func (m *mockStore) FindByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error) {
	return m.FindTrades(ctx, ports.TradeFilter{From: from, To: to})
}

func (m *mockStore) FindByAccount(ctx context.Context, accountID int64) ([]*domain.Trade, error) {
	return m.FindTrades(ctx, ports.TradeFilter{AccountID: accountID})
}

func (m *mockStore) UpdateStrategy(ctx context.Context, id int64, strategy domain.Strategy) error {
	t, ok := m.trades[id]
	if !ok {
		return fmt.Errorf("trade %d: %w", id, ports.ErrNotFound)
	}
	t.Strategy = strategy
	return nil
}

func (m *mockStore) DeleteTrade(ctx context.Context, id int64) error {
	if _, ok := m.trades[id]; !ok {
		return fmt.Errorf("trade %d: %w", id, ports.ErrNotFound)
	}
	delete(m.trades, id)
	return nil
}

func (m *mockStore) CreateAccount(ctx context.Context, account *domain.Account) (int64, error) {
	m.nextID++
	account.ID = m.nextID
	m.accounts[account.ID] = account
	return account.ID, nil
}

func (m *mockStore) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	return m.accounts[id], nil
}

func (m *mockStore) FindAccounts(ctx context.Context) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockPrices struct {
	prices  map[string]decimal.Decimal
	pingErr error
	asked   []string
}

func (m *mockPrices) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	m.asked = append(m.asked, symbol)
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ports.ErrPriceUnavailable)
	}
	return p, nil
}

func (m *mockPrices) Ping(ctx context.Context) error { return m.pingErr }

// Test helpers

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig() *config.Config {
	return &config.Config{
		InitialCapital: decimal.NewFromInt(10000),
		RiskFreeRate:   dec("0.02"),
		PeriodsPerYear: 252,
		LongTermDays:   365,
	}
}

var day0 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func setupService(t *testing.T, prices ports.PriceProvider) (*PortfolioService, *mockStore, *mockLogger) {
	t.Helper()
	store := newMockStore()
	log := &mockLogger{}
	svc, err := NewPortfolioService(testConfig(), log, store, store, prices)
	require.NoError(t, err)
	return svc, store, log
}

func stockTrade(t *testing.T, symbol string, action domain.Action, qty int64, price, comm string, days int) *domain.Trade {
	t.Helper()
	tr, err := domain.NewStockTrade(symbol, action, qty, dec(price), dec(comm), day0.AddDate(0, 0, days))
	require.NoError(t, err)
	return tr
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestNewPortfolioService(t *testing.T) {
	store := newMockStore()
	log := &mockLogger{}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		nilDeps bool
		wantErr bool
	}{
		{name: "valid"},
		{name: "missing deps", nilDeps: true, wantErr: true},
		{name: "zero capital", mutate: func(c *config.Config) { c.InitialCapital = decimal.Zero }, wantErr: true},
		{name: "zero periods", mutate: func(c *config.Config) { c.PeriodsPerYear = 0 }, wantErr: true},
		{name: "zero long-term days", mutate: func(c *config.Config) { c.LongTermDays = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			var svc *PortfolioService
			var err error
			if tt.nilDeps {
				svc, err = NewPortfolioService(cfg, log, nil, store, nil)
			} else {
				svc, err = NewPortfolioService(cfg, log, store, store, nil)
			}
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestRecordTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("stores normalized trade", func(t *testing.T) {
		svc, store, _ := setupService(t, nil)
		tr := &domain.Trade{
			Symbol: " aapl ", AssetKind: domain.AssetStock, Action: domain.ActionBuy,
			Quantity: 10, Price: dec("150"), Commission: dec("1"), Timestamp: day0,
		}
		id, err := svc.RecordTrade(ctx, tr)
		require.NoError(t, err)
		stored := store.trades[id]
		require.NotNil(t, stored)
		assert.Equal(t, "AAPL", stored.Symbol)
		assert.Equal(t, domain.StrategyUntagged, stored.Strategy)
	})

	t.Run("rejects invalid trade", func(t *testing.T) {
		svc, store, _ := setupService(t, nil)
		tr := &domain.Trade{Symbol: "AAPL", AssetKind: domain.AssetStock, Action: domain.ActionBuy, Price: dec("1"), Timestamp: day0}
		_, err := svc.RecordTrade(ctx, tr)
		assert.ErrorIs(t, err, domain.ErrInvalidTrade)
		assert.Empty(t, store.trades)
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		svc, _, _ := setupService(t, nil)
		tr := stockTrade(t, "AAPL", domain.ActionBuy, 1, "1", "0", 0)
		tr.AccountID = 99
		_, err := svc.RecordTrade(ctx, tr)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})
}

func TestImportTrades_KeepsGoodRecords(t *testing.T) {
	svc, store, log := setupService(t, nil)
	ctx := context.Background()

	accID, err := svc.AddAccount(ctx, &domain.Account{Name: "Main", Broker: domain.BrokerIBKR, AccountNumber: "U1", IsActive: true})
	require.NoError(t, err)

	bad := &domain.Trade{Symbol: "BAD", AssetKind: domain.AssetStock, Action: domain.ActionBuy, Quantity: 0, Price: dec("1"), Timestamp: day0}
	batch := utils.ImportResult{
		Trades: []*domain.Trade{
			stockTrade(t, "AAPL", domain.ActionBuy, 10, "150", "1", 0),
			bad,
			stockTrade(t, "AAPL", domain.ActionSell, 10, "160", "1", 3),
		},
		Errors: []utils.RecordError{{Line: 4, Err: ports.ErrMalformedRecord}},
	}

	out, err := svc.ImportTrades(ctx, batch, accID)
	require.NoError(t, err)
	assert.Len(t, out.Stored, 2)
	require.Len(t, out.Errors, 2)
	assert.ErrorIs(t, out.Errors[0], ports.ErrMalformedRecord)
	assert.ErrorIs(t, out.Errors[1], domain.ErrInvalidTrade)

	for _, id := range out.Stored {
		assert.Equal(t, accID, store.trades[id].AccountID)
	}
	assert.Contains(t, log.infoMsgs, "Import finished")
}

func TestTagAndDeleteTrade(t *testing.T) {
	svc, store, _ := setupService(t, nil)
	ctx := context.Background()

	id, err := svc.RecordTrade(ctx, stockTrade(t, "AAPL", domain.ActionBuy, 1, "1", "0", 0))
	require.NoError(t, err)

	require.NoError(t, svc.TagTrade(ctx, id, domain.StrategyMomentum))
	assert.Equal(t, domain.StrategyMomentum, store.trades[id].Strategy)

	assert.ErrorIs(t, svc.TagTrade(ctx, id, domain.Strategy("yolo")), domain.ErrInvalidTrade)
	assert.ErrorIs(t, svc.TagTrade(ctx, 999, domain.StrategyMomentum), ports.ErrNotFound)

	require.NoError(t, svc.DeleteTrade(ctx, id))
	assert.ErrorIs(t, svc.DeleteTrade(ctx, id), ports.ErrNotFound)
}

func TestCheckPrices(t *testing.T) {
	svc, _, _ := setupService(t, nil)
	assert.ErrorIs(t, svc.CheckPrices(context.Background()), ports.ErrConfigurationError)

	svc, _, _ = setupService(t, &mockPrices{pingErr: ports.ErrConnectionFailed})
	assert.ErrorIs(t, svc.CheckPrices(context.Background()), ports.ErrConnectionFailed)
}

// seedPortfolio stores a closed stock round trip, an option held past expiry,
// an open stock with a known price and an open stock without one.
func seedPortfolio(t *testing.T, svc *PortfolioService) {
	t.Helper()
	ctx := context.Background()

	buy := stockTrade(t, "AAPL", domain.ActionBuy, 100, "150", "1", 0)
	buy.Strategy = domain.StrategySwingTrade
	sell := stockTrade(t, "AAPL", domain.ActionSell, 100, "160", "1", 14)

	call, err := domain.NewOptionTrade("SPY", domain.ActionBuyToOpen, 2, dec("3.00"), dec("1.30"), day0.AddDate(0, 0, 1),
		domain.OptionContract{Strike: dec("480"), Expiry: time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC), Right: domain.RightCall})
	require.NoError(t, err)
	call.Strategy = domain.StrategyLongCall

	msft := stockTrade(t, "MSFT", domain.ActionBuy, 10, "300", "0", 5)
	tsla := stockTrade(t, "TSLA", domain.ActionBuy, 5, "200", "0", 6)

	for _, tr := range []*domain.Trade{buy, sell, call, msft, tsla} {
		_, err := svc.RecordTrade(ctx, tr)
		require.NoError(t, err)
	}
}

func TestBuildReport(t *testing.T) {
	prices := &mockPrices{prices: map[string]decimal.Decimal{"MSFT": dec("310")}}
	svc, _, log := setupService(t, prices)
	seedPortfolio(t, svc)

	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rep, err := svc.BuildReport(context.Background(), ports.TradeFilter{}, asOf)
	require.NoError(t, err)

	assert.Len(t, rep.Trades, 5)
	require.Len(t, rep.Closed, 2)
	assertDec(t, "998.00", rep.Closed[0].RealizedPnL.Decimal)
	assertDec(t, "-601.30", rep.Closed[1].RealizedPnL.Decimal)
	assert.Equal(t, "SPY", rep.Closed[1].Symbol)

	require.Len(t, rep.Open, 1)
	assert.Equal(t, "MSFT", rep.Open[0].Symbol)
	assertDec(t, "100.00", rep.UnrealizedPnL)

	require.Len(t, rep.Unpriced, 1)
	assert.Equal(t, "TSLA", rep.Unpriced[0].Trade.Symbol)
	assert.Contains(t, log.warnMsgs, "No market price for open lot")
	assert.ElementsMatch(t, []string{"MSFT", "TSLA"}, prices.asked)

	assert.Equal(t, 2, rep.Statistics.TotalTrades)
	assertDec(t, "50", rep.Statistics.WinRate)
	assertDec(t, "396.70", rep.Metrics.TotalPnL)
	assertDec(t, "3.97", rep.Metrics.TotalReturnPercentage)

	require.Len(t, rep.EquityCurve, 3)
	assertDec(t, "10396.70", rep.EquityCurve[2].Value)
	assertDec(t, "601.30", rep.Drawdown.MaxDrawdownAmount)
	assertDec(t, "5.47", rep.Drawdown.MaxDrawdownPercent)
	assertDec(t, "5.47", rep.Metrics.MaxDrawdownPercent)

	require.Len(t, rep.Monthly, 2)
	assert.Equal(t, "2024-01", rep.Monthly[0].Label)
	assertDec(t, "998", rep.Monthly[0].PnL)
	assertDec(t, "-601.30", rep.Monthly[1].PnL)

	require.NotNil(t, rep.Strategies.Best)
	require.NotNil(t, rep.Strategies.Worst)
	assert.Equal(t, domain.StrategySwingTrade, rep.Strategies.Best.Strategy)
	assert.Equal(t, domain.StrategyLongCall, rep.Strategies.Worst.Strategy)
	assert.Equal(t, 3, rep.StrategySummary.TotalStrategiesUsed)
}

func TestBuildReport_BeforeExpiryWithoutPrices(t *testing.T) {
	svc, _, _ := setupService(t, nil)
	seedPortfolio(t, svc)

	rep, err := svc.BuildReport(context.Background(), ports.TradeFilter{}, day0.AddDate(0, 0, 20))
	require.NoError(t, err)

	require.Len(t, rep.Closed, 1)
	assert.Empty(t, rep.Open)
	assert.Len(t, rep.Unpriced, 3)
	assertDec(t, "0", rep.UnrealizedPnL)
}

func TestBuildReport_FilterAndErrors(t *testing.T) {
	svc, store, _ := setupService(t, nil)
	seedPortfolio(t, svc)
	ctx := context.Background()

	rep, err := svc.BuildReport(ctx, ports.TradeFilter{Symbol: "AAPL"}, day0.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Len(t, rep.Trades, 2)
	assert.Len(t, rep.Closed, 1)
	assert.Empty(t, rep.Unpriced)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.BuildReport(cancelled, ports.TradeFilter{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)

	store.findErr = ports.ErrQueryFailed
	_, err = svc.BuildReport(ctx, ports.TradeFilter{}, time.Time{})
	assert.ErrorIs(t, err, ports.ErrQueryFailed)
}

func TestBuildReport_Empty(t *testing.T) {
	svc, _, _ := setupService(t, nil)
	svc.now = func() time.Time { return day0 }

	rep, err := svc.BuildReport(context.Background(), ports.TradeFilter{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day0, rep.AsOf)
	assert.Empty(t, rep.Closed)
	assert.Empty(t, rep.EquityCurve)
	assertDec(t, "0", rep.Metrics.TotalPnL)
	assertDec(t, "0", rep.Metrics.SharpeRatio)
	assert.Nil(t, rep.Strategies.Best)
}

func TestBuildReport_PositionsAndRisk(t *testing.T) {
	store := newMockStore()
	log := &mockLogger{}
	cfg := testConfig()
	cfg.MaxPositionPercent = dec("25")
	prices := &mockPrices{prices: map[string]decimal.Decimal{"MSFT": dec("310")}}
	svc, err := NewPortfolioService(cfg, log, store, store, prices)
	require.NoError(t, err)
	seedPortfolio(t, svc)

	rep, err := svc.BuildReport(context.Background(), ports.TradeFilter{}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, rep.Positions, 2)
	assert.Equal(t, "MSFT", rep.Positions[0].InstrumentKey)
	assert.True(t, rep.Positions[0].CurrentPrice.Valid)
	assert.False(t, rep.Positions[1].CurrentPrice.Valid)

	// 3100 of 10496.70 equity
	assertDec(t, "10496.70", rep.Risk.Equity)
	assertDec(t, "29.53", rep.Risk.Exposures[0].PercentOfEquity)
	require.Len(t, rep.Risk.Breaches, 1)
	assert.ErrorIs(t, rep.Risk.Breaches[0], risk.ErrPositionLimit)
	assert.Contains(t, log.warnMsgs, "Risk limit breached")
}
