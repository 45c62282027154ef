package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes one command against a fresh command tree.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PRICE_SOURCE", "STATIC_PRICES", "PRICES_FILE", "INITIAL_CAPITAL",
		"RISK_FREE_RATE", "PERIODS_PER_YEAR", "LONG_TERM_DAYS", "EXPORT_DIR",
		"MAX_POSITION_PERCENT", "MAX_DRAWDOWN_PERCENT", "MAX_OPEN_POSITIONS"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")
}

func TestCLI_EndToEnd(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "trades.db")
	exports := filepath.Join(dir, "exports")

	out, err := runCLI(t, "--db", db, "account", "add", "--name", "Main", "--broker", "IBKR", "--number", "U1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added account 1: Main (ibkr)")

	out, err = runCLI(t, "--db", db, "trade", "add", "--symbol", "aapl", "--action", "buy", "--qty", "100",
		"--price", "150", "--commission", "1", "--time", "2024-01-02", "--account", "1", "--strategy", "swing_trade")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Recorded trade 1: buy 100 AAPL @ 150")

	_, err = runCLI(t, "--db", db, "trade", "add", "--symbol", "AAPL", "--action", "sell", "--qty", "100",
		"--price", "160", "--commission", "1", "--time", "2024-01-16")
	require.NoError(t, err)

	csvPath := filepath.Join(dir, "fills.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"timestamp,symbol,action,quantity,price,commission\n"+
			"2024-01-07,MSFT,buy,10,300,0\n"+
			"2024-01-08,TSLA,buy,abc,200,0\n"), 0o644))
	out, err = runCLI(t, "--db", db, "trade", "import", csvPath, "--account", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 1 trades")
	assert.Contains(t, out, "skipped: record 3")

	out, err = runCLI(t, "--db", db, "trade", "list", "--account", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, "2 trades")

	out, err = runCLI(t, "--db", db, "report", "--as-of", "2024-03-01", "--price", "MSFT=310")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Realized P&L: 998.00")
	assert.Contains(t, out, "Unrealized P&L: 100.00")
	assert.Contains(t, out, "2024-01")

	out, err = runCLI(t, "--db", db, "strategies", "--as-of", "2024-03-01", "--price", "MSFT=310")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Swing Trade")
	assert.Contains(t, out, "Best: Swing Trade")

	out, err = runCLI(t, "--db", db, "export", "tax", "--year", "2024", "--dir", exports)
	require.NoError(t, err, out)
	data, err := os.ReadFile(filepath.Join(exports, "tax_report_2024.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL,2024-01-02,2024-01-16,100,")
	assert.Contains(t, string(data), "998.00,Short-term")

	out, err = runCLI(t, "--db", db, "export", "trades", "--raw", "--format", "yaml", "--dir", exports)
	require.NoError(t, err, out)
	path := strings.TrimSpace(strings.TrimPrefix(out, "Wrote "))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "symbol: MSFT")

	out, err = runCLI(t, "--db", db, "trade", "tag", "3", "momentum")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Trade 3 tagged Momentum")

	_, err = runCLI(t, "--db", db, "trade", "delete", "3")
	require.NoError(t, err)
	_, err = runCLI(t, "--db", db, "trade", "delete", "3")
	assert.Error(t, err)
}

func TestCLI_Errors(t *testing.T) {
	cleanEnv(t)
	db := filepath.Join(t.TempDir(), "trades.db")

	tests := []struct {
		name string
		args []string
	}{
		{"missing required flag", []string{"trade", "add", "--symbol", "AAPL"}},
		{"bad strategy", []string{"trade", "tag", "1", "yolo"}},
		{"bad id", []string{"trade", "delete", "x"}},
		{"bad period", []string{"report", "--period", "hourly"}},
		{"bad date", []string{"trade", "list", "--from", "01/02/2024"}},
		{"unsupported import", []string{"trade", "import", "fills.xlsx"}},
		{"no price source", []string{"ping"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--db", db}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestCLI_StrategiesList(t *testing.T) {
	cleanEnv(t)
	out, err := runCLI(t, "--db", filepath.Join(t.TempDir(), "x.db"), "strategies", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "cash_secured_put")
	assert.Contains(t, out, "Cash Secured Put")
}
