package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"tradetracker/internal/adapters/csvexport"
	"tradetracker/internal/utils"
)

func (a *cliApp) exportCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write CSV reports to the export directory",
		Long: `Write reports to files under --dir (default EXPORT_DIR).

Subcommands:
  trades   - one row per closed or marked position, with P&L
  monthly  - realized P&L per month
  tax      - realized lots for one tax year with short/long-term classification

Examples:
  tradetracker export trades --symbol AAPL
  tradetracker export trades --raw --format yaml
  tradetracker export tax --year 2024`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "output directory (default from EXPORT_DIR)")

	cmd.AddCommand(a.exportTradesCommand(&dir), a.exportMonthlyCommand(&dir), a.exportTaxCommand(&dir))
	return cmd
}

// writeExport writes one file and reports its path.
func (a *cliApp) writeExport(cmd *cobra.Command, dir *string, sess *session, name string, write func(io.Writer) error) error {
	target := *dir
	if target == "" {
		target = sess.cfg.ExportDir
	}
	path, err := csvexport.WriteFile(target, name, write)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func stamp() string {
	return time.Now().Format("20060102_150405")
}

func (a *cliApp) exportTradesCommand(dir *string) *cobra.Command {
	var rf reportFlags
	var raw bool
	var format string

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Export positions with P&L, or the raw trade list with --raw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				filter, err := rf.filter()
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
				switch format {
				case "csv":
					return a.writeExport(cmd, dir, sess, "trades_raw_"+stamp()+".csv", func(w io.Writer) error {
						return utils.WriteTradesCSV(w, trades)
					})
				case "yaml":
					return a.writeExport(cmd, dir, sess, "trades_raw_"+stamp()+".yaml", func(w io.Writer) error {
						return utils.WriteTradesYAML(w, trades)
					})
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			}

			rep, sess, err := rf.build(cmd, a)
			if err != nil {
				return err
			}
			return a.writeExport(cmd, dir, sess, "trades_"+stamp()+".csv", func(w io.Writer) error {
				return csvexport.WriteTrades(w, rep.History, rep.Results())
			})
		},
	}
	rf.register(cmd, a)
	cmd.Flags().BoolVar(&raw, "raw", false, "export recorded trades (re-importable) instead of positions")
	cmd.Flags().StringVar(&format, "format", "csv", "raw export format: csv or yaml")
	return cmd
}

func (a *cliApp) exportMonthlyCommand(dir *string) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Export realized P&L per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, sess, err := rf.build(cmd, a)
			if err != nil {
				return err
			}
			return a.writeExport(cmd, dir, sess, "monthly_summary_"+stamp()+".csv", func(w io.Writer) error {
				return csvexport.WriteMonthlySummary(w, rep.Closed)
			})
		},
	}
	rf.register(cmd, a)
	return cmd
}

func (a *cliApp) exportTaxCommand(dir *string) *cobra.Command {
	var rf reportFlags
	var year int

	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Export realized lots for a tax year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			rep, sess, err := rf.build(cmd, a)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("tax_report_%d.csv", year)
			return a.writeExport(cmd, dir, sess, name, func(w io.Writer) error {
				return csvexport.WriteTaxReport(w, rep.Closed, year, sess.cfg.LongTermDays)
			})
		},
	}
	rf.register(cmd, a)
	cmd.Flags().IntVar(&year, "year", 0, "tax year (default current year)")
	return cmd
}
