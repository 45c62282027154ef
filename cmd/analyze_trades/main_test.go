package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `timestamp,symbol,action,quantity,price,commission,strategy,strike,expiry,right
2024-01-02,AAPL,buy,100,150,1,swing_trade,,,
2024-01-16,AAPL,sell,100,160,1,swing_trade,,,
2024-01-03,SPY,buy_to_open,2,3.00,1.30,long_call,480,2024-02-16,call
2024-01-04,MSFT,buy,10,300,0,,,,
`

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	a, err := analyzeFile(path, decimal.NewFromInt(10000), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 4, a.trades)
	assert.Equal(t, 1, a.open)
	assert.Equal(t, 2, a.stats.TotalTrades)
	assert.Equal(t, 1, a.stats.WinningTrades)
	assert.True(t, decimal.RequireFromString("396.70").Equal(a.metrics.TotalPnL), a.metrics.TotalPnL.String())
	assert.Len(t, a.strategies, 2)
}

func TestFindTradeFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.YAML", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	files, err := findTradeFiles([]string{dir})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findTradeFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
