package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"tradetracker/internal/analytics"
	"tradetracker/internal/domain"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// WriteTrades writes one row per P&L result. When any trade is an option the
// option right, strike and expiry columns are added, N/A for stock rows.
// Open results have an empty exit date and realized P&L.
func WriteTrades(w io.Writer, trades []*domain.Trade, results []analytics.PositionPnL) error {
	byKey := make(map[string]*domain.Trade, len(trades))
	hasOptions := false
	for _, t := range trades {
		byKey[t.Key()] = t
		if t.IsOption() {
			hasOptions = true
		}
	}

	header := []string{
		"symbol", "entry_date", "exit_date", "quantity",
		"entry_price", "exit_price", "cost_basis", "proceeds",
		"realized_pnl", "return_pct", "holding_days", "strategy",
	}
	if hasOptions {
		header = append(header, "option_type", "strike", "expiry")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Symbol,
			formatDate(r.EntryDate),
			formatDate(r.ExitDate),
			strconv.FormatInt(r.Quantity, 10),
			r.EntryPrice.StringFixed(2),
			r.ExitPrice.StringFixed(2),
			r.CostBasis.StringFixed(2),
			r.Proceeds.StringFixed(2),
			formatNull(r.RealizedPnL),
			r.ReturnPercentage.StringFixed(2),
			strconv.Itoa(r.HoldingPeriodDays),
			string(r.Strategy),
		}
		if hasOptions {
			if t, ok := byKey[r.OpeningTradeKey]; ok && t.Option != nil {
				row = append(row, string(t.Option.Right), t.Option.Strike.StringFixed(2), t.Option.Expiry.Format(dateLayout))
			} else {
				row = append(row, "N/A", "N/A", "N/A")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type monthTotals struct {
	pnl    decimal.Decimal
	trades int
	wins   int
	losses int
}

// WriteMonthlySummary writes realized P&L per exit month in chronological order.
func WriteMonthlySummary(w io.Writer, results []analytics.PositionPnL) error {
	months := make(map[analytics.MonthKey]*monthTotals)
	for _, r := range results {
		if !r.RealizedPnL.Valid || r.ExitDate.IsZero() {
			continue
		}
		k := analytics.MonthKey{Year: r.ExitDate.Year(), Month: r.ExitDate.Month()}
		m, ok := months[k]
		if !ok {
			m = &monthTotals{pnl: decimal.Zero}
			months[k] = m
		}
		m.pnl = m.pnl.Add(r.RealizedPnL.Decimal)
		m.trades++
		switch r.RealizedPnL.Decimal.Sign() {
		case 1:
			m.wins++
		case -1:
			m.losses++
		}
	}

	keys := make([]analytics.MonthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"month", "total_pnl", "num_trades", "wins", "losses", "win_rate"}); err != nil {
		return err
	}
	for _, k := range keys {
		m := months[k]
		winRate := decimal.NewFromInt(int64(m.wins)).Div(decimal.NewFromInt(int64(m.trades))).Mul(hundred)
		if err := writer.Write([]string{
			k.String(),
			m.pnl.StringFixed(2),
			strconv.Itoa(m.trades),
			strconv.Itoa(m.wins),
			strconv.Itoa(m.losses),
			winRate.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTaxReport writes the realized results whose exit falls in taxYear.
// Holding periods longer than longTermDays are reported as long-term.
func WriteTaxReport(w io.Writer, results []analytics.PositionPnL, taxYear, longTermDays int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"symbol", "date_acquired", "date_sold", "quantity",
		"cost_basis", "proceeds", "gain_loss", "term",
	}); err != nil {
		return err
	}
	for _, r := range results {
		if !r.RealizedPnL.Valid || r.ExitDate.IsZero() || r.ExitDate.Year() != taxYear {
			continue
		}
		if err := writer.Write([]string{
			r.Symbol,
			formatDate(r.EntryDate),
			formatDate(r.ExitDate),
			strconv.FormatInt(r.Quantity, 10),
			r.CostBasis.StringFixed(2),
			r.Proceeds.StringFixed(2),
			r.RealizedPnL.Decimal.StringFixed(2),
			string(r.Term(longTermDays)),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile creates dir/name and runs write against it.
func WriteFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory '%s': %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
