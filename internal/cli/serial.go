package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newSerialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serial",
		Short: "Look up serial numbers",
	}
	cmd.AddCommand(newSerialLookupCmd(a))
	return cmd
}

// allowedNext lists the result kinds a row in state o accepts.
func allowedNext(o types.Outcome) []types.OutcomeKind {
	var out []types.OutcomeKind
	for _, next := range []types.Outcome{types.Passed(), types.Failed("x"), types.Fixed("x")} {
		if o.CanTransitionTo(next) == nil {
			out = append(out, next.Kind())
		}
	}
	return out
}

func newSerialLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup ORDER_NUMBER SERIAL",
		Short: "Show a serial's current result and the results it may take next",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd); err != nil {
				return err
			}
			sess, err := a.tracker.OpenOrder(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			row, entry, err := sess.Lookup(args[1])
			if err != nil {
				return err
			}
			next := allowedNext(row.Outcome())
			view := struct {
				Row                 types.LedgerRow     `json:"row"`
				WasPreviouslyFailed bool                `json:"was_previously_failed"`
				Allowed             []types.OutcomeKind `json:"allowed"`
			}{row, entry.WasPreviouslyFailed, next}
			return a.emit(cmd, view, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s\n", row.Serial, colorResult(row.Result))
				if row.FailureExplanation != "" {
					fmt.Fprintf(out, "  failure: %s\n", row.FailureExplanation)
				}
				if row.FixExplanation != "" {
					fmt.Fprintf(out, "  fix: %s\n", row.FixExplanation)
				}
				if len(next) == 0 {
					fmt.Fprintln(out, "  no further results allowed")
					return
				}
				fmt.Fprintf(out, "  next: %v\n", next)
			})
		},
	}
}
