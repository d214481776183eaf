package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/lakegate/pkg/metering"
)

var checkBalanceCmd = &cobra.Command{
	Use:   "check-balance",
	Short: "Run one metering check for a principal",
	Long: `Run one metering check for a principal against the configured
metering API, with the same retry and backoff behavior as the gateway.

Exit status is 0 when the principal may proceed, 2 when the balance is
insufficient, and 1 when the metering service could not be consulted.

Example:
  lakegate check-balance --principal alice@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, _ := cmd.Flags().GetString("principal")
		if principal == "" {
			return errors.New("--principal is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gate, err := metering.New(meteringConfig(cfg.Metering))
		if err != nil {
			return err
		}

		allowed, err := gate.CheckBalance(cmd.Context(), principal)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !allowed {
			fmt.Fprintf(out, "%s: denied (%s)\n", principal, metering.InsufficientBalanceMessage)
			return errInsufficient
		}
		if !gate.Enabled() {
			fmt.Fprintf(out, "%s: allowed (metering disabled)\n", principal)
			return nil
		}
		fmt.Fprintf(out, "%s: allowed\n", principal)
		return nil
	},
}

// errInsufficient maps a denial to exit status 2.
var errInsufficient = &exitError{code: 2, err: metering.ErrInsufficientBalance}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func init() {
	checkBalanceCmd.Flags().StringP("principal", "p", "", "principal name (user email) to check")
	rootCmd.AddCommand(checkBalanceCmd)
}
