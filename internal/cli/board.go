package cli

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newBoardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage board types",
	}
	cmd.AddCommand(
		newBoardAddCmd(a),
		newBoardListCmd(a),
		newBoardRenameCmd(a),
		newArchiveCmd(a, "board", true, func(ctx context.Context, id int64) error { return a.store.ArchiveBoard(ctx, id) }),
		newArchiveCmd(a, "board", false, func(ctx context.Context, id int64) error { return a.store.UnarchiveBoard(ctx, id) }),
		newDeleteCmd(a, types.KindBoard),
	)
	return cmd
}

func newBoardAddCmd(a *app) *cobra.Command {
	var companyID int64
	var storagePath string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a board type to a company",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			id, err := a.store.CreateBoard(ctx, companyID, args[0], storagePath)
			if err != nil {
				return err
			}
			b, err := a.store.GetBoard(ctx, id)
			if err != nil {
				return err
			}
			return a.emit(cmd, b, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Added board %d %s\n", b.BoardID, b.Name)
			})
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "owning company id (required)")
	cmd.Flags().StringVar(&storagePath, "path", "", "ledger directory; defaults to the company's")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newBoardListCmd(a *app) *cobra.Command {
	var companyID int64
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a company's board types",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd); err != nil {
				return err
			}
			boards, err := a.store.ListBoardsByCompany(ctxOf(cmd), companyID, all)
			if err != nil {
				return err
			}
			return a.emit(cmd, boards, func() {
				printTable(cmd, []string{"ID", "NAME", "ARCHIVED", "PATH"},
					lo.Map(boards, func(b types.Board, _ int) []string {
						return []string{idString(b.BoardID), b.Name, yesNo(b.Archived), b.StoragePath}
					}))
			})
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company id (required)")
	cmd.Flags().BoolVar(&all, "all", false, "include archived boards")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newBoardRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a board type",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("board", args[0])
			if err != nil {
				return err
			}
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			if err := a.store.RenameBoard(ctxOf(cmd), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed board %d to %s\n", id, args[1])
			return nil
		},
	}
}
