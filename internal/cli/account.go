package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tradetracker/internal/domain"
)

func (a *cliApp) accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage brokerage accounts",
	}
	cmd.AddCommand(a.accountAddCommand(), a.accountListCommand())
	return cmd
}

func (a *cliApp) accountAddCommand() *cobra.Command {
	var name, broker, number string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a brokerage account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open()
			if err != nil {
				return err
			}
			acc := &domain.Account{
				Name:          name,
				Broker:        domain.Broker(strings.ToLower(broker)),
				AccountNumber: number,
				IsActive:      !inactive,
			}
			id, err := sess.service.AddAccount(cmd.Context(), acc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %d: %s (%s)\n", id, acc.Name, acc.Broker)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&broker, "broker", string(domain.BrokerManual), "ibkr, moomoo, questrade or manual")
	cmd.Flags().StringVar(&number, "number", "", "broker account number (required)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "mark the account inactive")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func (a *cliApp) accountListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List brokerage accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open()
			if err != nil {
				return err
			}
			accounts, err := sess.service.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tName\tBroker\tNumber\tActive\t")
			for _, acc := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t\n", acc.ID, acc.Name, acc.Broker, acc.AccountNumber, acc.IsActive)
			}
			return w.Flush()
		},
	}
}
