package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"tradetracker/internal/analytics"
	"tradetracker/internal/app"
	"tradetracker/internal/domain"
)

// reportFlags select the trades and the valuation date of a report.
type reportFlags struct {
	filterFlags
	asOf string
}

func (f *reportFlags) register(cmd *cobra.Command, a *cliApp) {
	f.filterFlags.register(cmd)
	cmd.Flags().StringVar(&f.asOf, "as-of", "", "valuation date (YYYY-MM-DD, default today); options expiring earlier expire worthless")
	cmd.Flags().StringSliceVar(&a.prices, "price", nil, "mark price SYMBOL=PRICE for open lots, repeatable (overrides PRICE_SOURCE)")
}

// build runs the report for the flags.
func (f *reportFlags) build(cmd *cobra.Command, a *cliApp) (*app.Report, *session, error) {
	filter, err := f.filter()
	if err != nil {
		return nil, nil, err
	}
	var asOf time.Time
	if f.asOf != "" {
		asOf, err = time.Parse(dateLayout, f.asOf)
		if err != nil {
			return nil, nil, fmt.Errorf("--as-of: %w", err)
		}
	}
	sess, err := a.open()
	if err != nil {
		return nil, nil, err
	}
	rep, err := sess.service.BuildReport(cmd.Context(), filter, asOf)
	if err != nil {
		return nil, nil, err
	}
	return rep, sess, nil
}

func (a *cliApp) reportCommand() *cobra.Command {
	var rf reportFlags
	var period string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show P&L, portfolio metrics and period breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, sess, err := rf.build(cmd, a)
			if err != nil {
				return err
			}
			periods, err := selectPeriods(rep, period)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			writeSummary(w, rep, sess.cfg.InitialCapital.String())
			fmt.Fprintln(w)
			if err := writePositions(w, rep); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return writePeriods(w, period, periods)
		},
	}
	rf.register(cmd, a)
	cmd.Flags().StringVar(&period, "period", "monthly", "P&L breakdown: daily, weekly, monthly or yearly")
	return cmd
}

func selectPeriods(rep *app.Report, period string) ([]analytics.PeriodPnL, error) {
	switch period {
	case "daily":
		return rep.Daily, nil
	case "weekly":
		return rep.Weekly, nil
	case "monthly":
		return rep.Monthly, nil
	case "yearly":
		return rep.Yearly, nil
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
}

func writeSummary(w io.Writer, rep *app.Report, capital string) {
	m, s, dd := rep.Metrics, rep.Statistics, rep.Drawdown
	fmt.Fprintf(w, "Portfolio as of %s (initial capital %s)\n", fmtDate(rep.AsOf), capital)
	fmt.Fprintf(w, "  Trades: %d recorded, %d closed, %d open, %d unpriced\n",
		len(rep.Trades), len(rep.Closed), len(rep.Open), len(rep.Unpriced))
	fmt.Fprintf(w, "  Realized P&L: %s (%s)   Unrealized P&L: %s\n",
		money(m.TotalPnL), pct(m.TotalReturnPercentage), money(rep.UnrealizedPnL))
	fmt.Fprintf(w, "  Win rate: %s (%d W / %d L)   Profit factor: %s\n",
		pct(m.WinRate), m.WinningTrades, m.LosingTrades, m.ProfitFactor.StringFixed(2))
	fmt.Fprintf(w, "  Avg win: %s   Avg loss: %s   Largest win: %s   Largest loss: %s\n",
		money(s.AverageWin), money(s.AverageLoss), money(s.LargestWin), money(s.LargestLoss))
	fmt.Fprintf(w, "  Max drawdown: %s (%s, %s -> %s)   Sharpe: %s\n",
		money(dd.MaxDrawdownAmount), pct(dd.MaxDrawdownPercent), fmtDate(dd.PeakDate), fmtDate(dd.TroughDate),
		m.SharpeRatio.StringFixed(2))
	fmt.Fprintf(w, "  Equity: %s   Open exposure: %s across %d positions\n",
		money(rep.Risk.Equity), money(rep.Risk.TotalExposure), len(rep.Positions))
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "  ! pair %s skipped: %v\n", f.Pair.ID, f.Err)
	}
	for _, b := range rep.Risk.Breaches {
		fmt.Fprintf(w, "  ! %v\n", b)
	}
}

func writePositions(w io.Writer, rep *app.Report) error {
	t := newTable(w)
	fmt.Fprintln(t, "Symbol\tKind\tQty\tEntry\tExit\tEntry Px\tExit Px\tP&L\tReturn\tDays\tStrategy\t")
	for _, r := range rep.Results() {
		exitPx, pnl := "-", money(r.TotalPnL())
		if r.IsClosed() {
			exitPx = r.ExitPrice.String()
		} else if r.MarkPrice.Valid {
			exitPx = r.MarkPrice.Decimal.String() + "*"
		}
		fmt.Fprintf(t, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			r.Symbol, r.AssetKind, r.Quantity, fmtDate(r.EntryDate), fmtDate(r.ExitDate),
			r.EntryPrice.String(), exitPx, pnl, pct(r.ReturnPercentage), r.HoldingPeriodDays, r.Strategy)
	}
	for _, lot := range rep.Unpriced {
		fmt.Fprintf(t, "%s\t%s\t%d\t%s\t-\t%s\t?\t-\t-\t-\t%s\t\n",
			lot.Trade.InstrumentKey(), lot.Trade.AssetKind, lot.Remaining, fmtDate(lot.Trade.Timestamp),
			lot.Trade.Price.String(), lot.Trade.Strategy)
	}
	return t.Flush()
}

func writePeriods(w io.Writer, period string, periods []analytics.PeriodPnL) error {
	t := newTable(w)
	fmt.Fprintf(t, "Period (%s)\tP&L\t\n", period)
	for _, p := range periods {
		fmt.Fprintf(t, "%s\t%s\t\n", p.Label, money(p.PnL))
	}
	return t.Flush()
}

func (a *cliApp) strategiesCommand() *cobra.Command {
	var rf reportFlags
	var list bool

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Compare performance by strategy tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list {
				t := newTable(w)
				for _, st := range domain.Strategies() {
					fmt.Fprintf(t, "%s\t%s\t\n", st, st.DisplayName())
				}
				return t.Flush()
			}

			rep, _, err := rf.build(cmd, a)
			if err != nil {
				return err
			}
			return writeStrategies(w, rep.Strategies, rep.StrategySummary)
		},
	}
	rf.register(cmd, a)
	cmd.Flags().BoolVar(&list, "list", false, "list the available strategy tags instead")
	return cmd
}

func writeStrategies(w io.Writer, cmp analytics.StrategyComparison, sum analytics.StrategySummary) error {
	if cmp.TotalStrategies == 0 {
		fmt.Fprintln(w, "No strategy results.")
		return nil
	}
	t := newTable(w)
	fmt.Fprintln(t, "Strategy\tTrades\tWins\tLosses\tWin Rate\tTotal P&L\tRealized\tAvg P&L\tMax Win\tMax Loss\t")
	for _, s := range cmp.Strategies {
		fmt.Fprintf(t, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Name, s.TotalTrades, s.WinningTrades, s.LosingTrades, pct(s.WinRate),
			money(s.TotalPnL), money(s.RealizedPnL), money(s.AveragePnL), money(s.MaxWin), money(s.MaxLoss))
	}
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nBest: %s   Worst: %s   Most used: %s\n", cmp.Best.Name, cmp.Worst.Name, cmp.MostUsed.Name)
	fmt.Fprintf(w, "%d strategies, %d net positive, average win rate %s, best win rate %s\n",
		sum.TotalStrategiesUsed, sum.StrategiesWithPositivePnL, pct(sum.AverageWinRate), pct(sum.BestWinRate))
	return nil
}

func (a *cliApp) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured price source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open()
			if err != nil {
				return err
			}
			if err := sess.service.CheckPrices(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Price source %q reachable\n", sess.cfg.PriceSource)
			return nil
		},
	}
}
