package cli

import (
	"github.com/spf13/cobra"
)

// cliApp carries the flags shared by every command and the lazily opened session.
type cliApp struct {
	dbPath   string
	logLevel string
	prices   []string // SYM=PRICE overrides for marking open lots

	sess *session
}

// NewRootCommand builds the tradetracker command tree.
func NewRootCommand() *cobra.Command {
	a := &cliApp{}

	root := &cobra.Command{
		Use:   "tradetracker",
		Short: "Trade journal with FIFO P&L and portfolio analytics",
		Long: `Tradetracker records stock and option trades and reports on them.

It provides tools for:
  - Recording trades by hand or importing them from CSV/YAML files
  - FIFO matching of opening and closing trades, including partial fills and shorts
  - Realized and unrealized P&L, option expiry handling
  - Win rate, profit factor, max drawdown and Sharpe ratio
  - Daily, weekly, monthly and yearly P&L buckets
  - Per-strategy performance comparison
  - CSV exports of trades, monthly summaries and tax lots

Settings come from the environment or a .env file (DB_PATH, LOG_LEVEL,
INITIAL_CAPITAL, PRICE_SOURCE, ...); flags override them.`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the SQLite trade database (default from DB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from LOG_LEVEL)")

	root.AddCommand(
		a.tradeCommand(),
		a.accountCommand(),
		a.reportCommand(),
		a.strategiesCommand(),
		a.exportCommand(),
		a.pingCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
