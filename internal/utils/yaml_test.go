package utils

import (
	"bytes"
	"strings"
	"testing"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
trades:
  - timestamp: 2024-01-02T14:30:00Z
    symbol: AAPL
    action: buy
    quantity: 100
    price: 150.00
    commission: 1
    strategy: day_trade
  - timestamp: "2024-01-03"
    symbol: AAPL
    asset_kind: option
    action: buy_to_open
    quantity: 10
    price: 5
    commission: 6.50
    strike: 150
    expiry: "2024-03-15"
    right: call
    multiplier: 100
  - timestamp: not-a-date
    symbol: AAPL
    action: sell
    quantity: 1
    price: 1
`

func TestReadTradesYAML(t *testing.T) {
	res, err := ReadTradesYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	assert.Equal(t, domain.StrategyDayTrade, res.Trades[0].Strategy)
	assert.Equal(t, int64(100), res.Trades[0].Quantity)
	assert.True(t, res.Trades[1].IsOption())
	assert.Equal(t, "AAPL 2024-03-15 150 call", res.Trades[1].InstrumentKey())

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Line)
	assert.ErrorIs(t, res.Errors[0], ports.ErrMalformedRecord)
}

func TestReadTradesYAML_Empty(t *testing.T) {
	res, err := ReadTradesYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Trades)

	_, err = ReadTradesYAML(strings.NewReader("trades: [\n"))
	assert.ErrorIs(t, err, ports.ErrMalformedRecord)
}

func TestWriteTradesYAML_RoundTrip(t *testing.T) {
	res, err := ReadTradesYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTradesYAML(&buf, res.Trades))

	again, err := ReadTradesYAML(&buf)
	require.NoError(t, err)
	require.Empty(t, again.Errors)
	require.Len(t, again.Trades, 2)
	assert.Equal(t, res.Trades[1].Key(), again.Trades[1].Key())
}
