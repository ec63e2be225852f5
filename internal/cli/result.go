package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newResultCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Record test results",
	}
	cmd.AddCommand(newResultRecordCmd(a))
	return cmd
}

func newResultRecordCmd(a *app) *cobra.Command {
	var explain string
	cmd := &cobra.Command{
		Use:   "record ORDER_NUMBER SERIAL pass|fail|fixed",
		Short: "Record a serial's test result in the order ledger",
		Long: `Records one result against the ledger row of SERIAL. A pending unit may
pass or fail; a failed unit may only be marked fixed. fail and fixed
require --explain.`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := types.ParseOutcome(args[2], explain)
			if err != nil {
				return err
			}
			if outcome.Kind() == types.OutcomePending {
				return fmt.Errorf("%w: a result cannot be reset to pending", types.ErrValidation)
			}
			u, err := a.login(cmd)
			if err != nil {
				return err
			}
			sum, err := a.tracker.RecordResult(ctxOf(cmd), args[0], types.RowUpdate{
				Serial:   args[1],
				Outcome:  outcome,
				Operator: u.Username,
				At:       a.now(),
			})
			if err != nil {
				return err
			}
			return a.emit(cmd, map[string]any{"order": args[0], "serial": args[1], "result": outcome.String(), "summary": sum}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s recorded %s\n  order %s %s\n",
					args[1], outcome, colorStatus(sum.Status), progress(sum))
			})
		},
	}
	cmd.Flags().StringVarP(&explain, "explain", "e", "", "failure or fix explanation")
	return cmd
}
