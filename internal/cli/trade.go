package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tradetracker/internal/domain"
	"tradetracker/internal/utils"
)

func (a *cliApp) tradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Record, import, list, tag and delete trades",
		Long: `Manage the trade journal.

Examples:
  tradetracker trade add --symbol AAPL --action buy --qty 100 --price 150.25 --commission 1
  tradetracker trade add --symbol SPY --action sell_to_open --qty 1 --price 3.10 \
      --strike 450 --expiry 2024-02-16 --right put --strategy cash_secured_put
  tradetracker trade import fills.csv --account 1
  tradetracker trade list --symbol AAPL --from 2024-01-01
  tradetracker trade tag 12 swing_trade
  tradetracker trade delete 12`,
	}
	cmd.AddCommand(a.tradeAddCommand(), a.tradeImportCommand(), a.tradeListCommand(),
		a.tradeTagCommand(), a.tradeDeleteCommand())
	return cmd
}

func (a *cliApp) tradeAddCommand() *cobra.Command {
	var rec utils.TradeRecord
	var account int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a single trade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rec.Timestamp == "" {
				rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
			}
			if account != 0 {
				rec.AccountID = strconv.FormatInt(account, 10)
			}
			trade, err := rec.ToTrade()
			if err != nil {
				return err
			}

			sess, err := a.open()
			if err != nil {
				return err
			}
			id, err := sess.service.RecordTrade(cmd.Context(), trade)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded trade %d: %s %d %s @ %s\n",
				id, trade.Action, trade.Quantity, trade.InstrumentKey(), trade.Price.String())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&rec.Symbol, "symbol", "", "ticker symbol (required)")
	f.StringVar(&rec.Action, "action", "", "buy, sell, buy_to_open, sell_to_open, buy_to_close, sell_to_close (required)")
	f.StringVar(&rec.Quantity, "qty", "", "shares or contracts (required)")
	f.StringVar(&rec.Price, "price", "", "price per share or per contract unit (required)")
	f.StringVar(&rec.Commission, "commission", "0", "total commission and fees")
	f.StringVar(&rec.Timestamp, "time", "", "execution time, RFC3339 or YYYY-MM-DD [HH:MM] (default now)")
	f.StringVar(&rec.Strategy, "strategy", "", "strategy tag (see 'strategies --list')")
	f.StringVar(&rec.Notes, "notes", "", "free-form notes")
	f.Int64Var(&account, "account", 0, "account ID")
	f.StringVar(&rec.AssetKind, "kind", "", "stock or option (default: option when --strike is set)")
	f.StringVar(&rec.Strike, "strike", "", "option strike")
	f.StringVar(&rec.Expiry, "expiry", "", "option expiry (YYYY-MM-DD)")
	f.StringVar(&rec.Right, "right", "", "option right: call or put")
	f.StringVar(&rec.Multiplier, "multiplier", "", "contract multiplier (default 100)")
	for _, name := range []string{"symbol", "action", "qty", "price"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *cliApp) tradeImportCommand() *cobra.Command {
	var account int64

	cmd := &cobra.Command{
		Use:   "import <file.csv|file.yaml>",
		Short: "Import trades from a CSV or YAML file",
		Long: `Import trades from a file. CSV files need a header row with at least
timestamp, symbol, action, quantity and price columns; YAML files hold a
top-level "trades" list with the same keys. Bad records are reported and
skipped, the rest are stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := utils.ReadTradesFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			sess, err := a.open()
			if err != nil {
				return err
			}
			out, err := sess.service.ImportTrades(cmd.Context(), batch, account)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Imported %d trades from %s\n", len(out.Stored), args[0])
			for _, e := range out.Errors {
				fmt.Fprintf(w, "  skipped: %v\n", e)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&account, "account", 0, "account ID for records without one")
	return cmd
}

func (a *cliApp) tradeListCommand() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ff.filter()
			if err != nil {
				return err
			}
			sess, err := a.open()
			if err != nil {
				return err
			}
			trades, err := sess.service.ListTrades(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tTime\tInstrument\tAction\tQty\tPrice\tComm\tStrategy\tAccount\t")
			for _, t := range trades {
				account := "-"
				if t.AccountID != 0 {
					account = strconv.FormatInt(t.AccountID, 10)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
					t.ID, t.Timestamp.Format("2006-01-02 15:04"), t.InstrumentKey(), t.Action,
					t.Quantity, t.Price.String(), money(t.Commission), t.Strategy, account)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d trades\n", len(trades))
			return nil
		},
	}
	ff.register(cmd)
	return cmd
}

func (a *cliApp) tradeTagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <trade-id> <strategy>",
		Short: "Change the strategy tag of a trade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			strategy, err := domain.ParseStrategy(args[1])
			if err != nil {
				return err
			}
			sess, err := a.open()
			if err != nil {
				return err
			}
			if err := sess.service.TagTrade(cmd.Context(), id, strategy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trade %d tagged %s\n", id, strategy.DisplayName())
			return nil
		},
	}
}

func (a *cliApp) tradeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.open()
			if err != nil {
				return err
			}
			if err := sess.service.DeleteTrade(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trade %d deleted\n", id)
			return nil
		},
	}
}
