package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradetracker/internal/domain"
	"tradetracker/internal/ports"
)

const dateLayout = "2006-01-02"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

// filterFlags are the trade selection flags shared by list, report and export.
type filterFlags struct {
	symbol   string
	account  int64
	strategy string
	from     string
	to       string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "only trades of this symbol")
	cmd.Flags().Int64Var(&f.account, "account", 0, "only trades of this account ID")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "only trades tagged with this strategy")
	cmd.Flags().StringVar(&f.from, "from", "", "first day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "last day to include (YYYY-MM-DD)")
}

func (f *filterFlags) filter() (ports.TradeFilter, error) {
	filter := ports.TradeFilter{Symbol: f.symbol, AccountID: f.account}
	if f.strategy != "" {
		st, err := domain.ParseStrategy(f.strategy)
		if err != nil {
			return filter, err
		}
		filter.Strategy = st
	}
	if f.from != "" {
		t, err := time.Parse(dateLayout, f.from)
		if err != nil {
			return filter, fmt.Errorf("--from: %w", err)
		}
		filter.From = t
	}
	if f.to != "" {
		t, err := time.Parse(dateLayout, f.to)
		if err != nil {
			return filter, fmt.Errorf("--to: %w", err)
		}
		filter.To = t.AddDate(0, 0, 1)
	}
	return filter, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
