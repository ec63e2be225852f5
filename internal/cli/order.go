package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/internal/tracker"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Create and inspect orders",
	}
	cmd.AddCommand(
		newOrderCreateCmd(a),
		newOrderListCmd(a),
		newOrderShowCmd(a),
		newOrderArchiveCmd(a, true),
		newOrderArchiveCmd(a, false),
		newOrderDeleteCmd(a),
	)
	return cmd
}

func newOrderCreateCmd(a *app) *cobra.Command {
	var req tracker.CreateOrderRequest
	var boardID int64
	cmd := &cobra.Command{
		Use:   "create ORDER_NUMBER",
		Short: "Create an order and generate its serial ledger",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.loginAdmin(cmd)
			if err != nil {
				return err
			}
			req.OrderNumber = args[0]
			req.CreatedBy = u.UserID
			req.BoardID = lo.Ternary(boardID > 0, mo.Some(boardID), mo.None[int64]())
			o, err := a.tracker.CreateOrder(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			return a.emit(cmd, o, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Created order %s with %d serials\n  ledger: %s\n", o.OrderNumber, req.Count, o.LedgerPath)
			})
		},
	}
	cmd.Flags().Int64Var(&req.CompanyID, "company", 0, "company id (required)")
	cmd.Flags().Int64Var(&boardID, "board", 0, "board type id")
	cmd.Flags().IntVarP(&req.Count, "count", "n", 0, "number of serials to generate (required)")
	cmd.Flags().IntVar(&req.Start, "start", 1, "first sequence number")
	cmd.Flags().StringVar(&req.Prefix, "prefix", "", "serial prefix; composed from customer code, board and order when empty")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func newOrderListCmd(a *app) *cobra.Command {
	var companyID int64
	var f types.OrderFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders with their test progress",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd); err != nil {
				return err
			}
			if companyID > 0 {
				f.CompanyID = mo.Some(companyID)
			}
			summaries, err := a.tracker.ListOrderSummaries(ctxOf(cmd), f)
			if err != nil {
				return err
			}
			return a.emit(cmd, summaries, func() {
				printTable(cmd, []string{"ORDER", "COMPANY", "STATE", "PROGRESS", "RESULTS", "CREATED"},
					lo.Map(summaries, func(s tracker.OrderSummary, _ int) []string {
						return []string{
							s.Order.OrderNumber,
							idString(s.Order.CompanyID),
							s.Order.Status,
							colorStatus(s.Summary.Status),
							progress(s.Summary),
							s.Order.CreatedAt.Format(types.TimestampLayout),
						}
					}))
			})
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "only orders of this company")
	cmd.Flags().StringVar(&f.Status, "state", "", "only orders in this persisted state (Pending or Archived)")
	cmd.Flags().StringVar(&f.Search, "search", "", "only order numbers containing this text")
	return cmd
}

func newOrderShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ORDER_NUMBER",
		Short: "Show an order's ledger rows",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd); err != nil {
				return err
			}
			sess, err := a.tracker.OpenOrder(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			view := struct {
				Order   types.Order       `json:"order"`
				Summary any               `json:"summary"`
				Rows    []types.LedgerRow `json:"rows"`
			}{sess.Order, sess.Summary, sess.Rows}
			return a.emit(cmd, view, func() {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Order %s (%s) %s  %s\n  ledger: %s\n\n",
					sess.Order.OrderNumber, sess.Order.Status, colorStatus(sess.Summary.Status), progress(sess.Summary), sess.Order.LedgerPath)
				printTable(cmd, []string{"SERIAL", "RESULT", "OPERATOR", "AT", "FAILURE", "FIX"},
					lo.Map(sess.Rows, func(r types.LedgerRow, _ int) []string {
						return []string{r.Serial, colorResult(r.Result), r.Operator, r.ResultTimestamp, r.FailureExplanation, r.FixExplanation}
					}))
			})
		},
	}
}

func newOrderArchiveCmd(a *app, archive bool) *cobra.Command {
	verb := lo.Ternary(archive, "archive", "unarchive")
	return &cobra.Command{
		Use:   verb + " ORDER_NUMBER",
		Short: fmt.Sprintf("%s an order", lo.Ternary(archive, "Archive", "Unarchive")),
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			o, err := a.store.GetOrderByNumber(ctx, args[0])
			if err != nil {
				return err
			}
			if archive {
				err = a.tracker.ArchiveOrder(ctx, o.OrderID)
			} else {
				err = a.store.UnarchiveOrder(ctx, o.OrderID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd order %s\n", lo.Ternary(archive, "Archive", "Unarchive"), o.OrderNumber)
			return nil
		},
	}
}

func newOrderDeleteCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete ORDER_NUMBER",
		Short: "Permanently delete an order record; its ledger file is kept",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			o, err := a.store.GetOrderByNumber(ctxOf(cmd), args[0])
			if err != nil {
				return err
			}
			return a.deletePermanently(cmd, types.KindOrder, o.OrderID, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the permanent delete")
	return cmd
}
