package cli

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newCompanyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}
	cmd.AddCommand(
		newCompanyAddCmd(a),
		newCompanyListCmd(a),
		newCompanyRenameCmd(a),
		newArchiveCmd(a, "company", true, func(ctx context.Context, id int64) error { return a.store.ArchiveCompany(ctx, id) }),
		newArchiveCmd(a, "company", false, func(ctx context.Context, id int64) error { return a.store.UnarchiveCompany(ctx, id) }),
		newDeleteCmd(a, types.KindCompany),
	)
	return cmd
}

func newCompanyAddCmd(a *app) *cobra.Command {
	var storagePath, code string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a company",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			id, err := a.store.CreateCompany(ctx, args[0], storagePath, lo.Ternary(code == "", mo.None[string](), mo.Some(code)))
			if err != nil {
				return err
			}
			c, err := a.store.GetCompany(ctx, id)
			if err != nil {
				return err
			}
			return a.emit(cmd, c, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Added company %d %s\n", c.CompanyID, c.Name)
			})
		},
	}
	cmd.Flags().StringVar(&storagePath, "path", "", "directory order ledgers are written to (required)")
	cmd.Flags().StringVar(&code, "code", "", "customer code used in serial prefixes")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newCompanyListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.login(cmd); err != nil {
				return err
			}
			companies, err := a.store.ListCompanies(ctxOf(cmd), all)
			if err != nil {
				return err
			}
			return a.emit(cmd, companies, func() {
				printTable(cmd, []string{"ID", "NAME", "CODE", "ARCHIVED", "PATH"},
					lo.Map(companies, func(c types.Company, _ int) []string {
						return []string{idString(c.CompanyID), c.Name, c.CustomerCode.OrEmpty(), yesNo(c.Archived), c.StoragePath}
					}))
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived companies")
	return cmd
}

func newCompanyRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a company",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("company", args[0])
			if err != nil {
				return err
			}
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			if err := a.store.RenameCompany(ctxOf(cmd), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed company %d to %s\n", id, args[1])
			return nil
		},
	}
}

// newArchiveCmd builds an "archive ID" or "unarchive ID" subcommand for
// an entity addressed by numeric id.
func newArchiveCmd(a *app, what string, archive bool, fn func(ctx context.Context, id int64) error) *cobra.Command {
	verb := lo.Ternary(archive, "archive", "unarchive")
	return &cobra.Command{
		Use:   verb + " ID",
		Short: fmt.Sprintf("%s a %s", lo.Ternary(archive, "Archive", "Unarchive"), what),
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(what, args[0])
			if err != nil {
				return err
			}
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			if err := fn(ctxOf(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd %s %d\n", lo.Ternary(archive, "Archive", "Unarchive"), what, id)
			return nil
		},
	}
}

// newDeleteCmd builds a permanent "delete ID" subcommand. Ledger files are
// never removed; their paths are reported instead.
func newDeleteCmd(a *app, kind types.EntityKind) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: fmt.Sprintf("Permanently delete a %s and everything under it", kind),
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(string(kind), args[0])
			if err != nil {
				return err
			}
			return a.deletePermanently(cmd, kind, id, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the permanent delete")
	return cmd
}

func (a *app) deletePermanently(cmd *cobra.Command, kind types.EntityKind, id int64, force bool) error {
	if !force {
		return fmt.Errorf("%w: permanent delete of %s %d needs --force", types.ErrValidation, kind, id)
	}
	if _, err := a.loginAdmin(cmd); err != nil {
		return err
	}
	orphans, err := a.tracker.DeletePermanently(ctxOf(cmd), kind, id)
	if err != nil {
		return err
	}
	return a.emit(cmd, map[string]any{"deleted": kind, "id": id, "orphaned_ledgers": orphans}, func() {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Deleted %s %d\n", kind, id)
		for _, p := range orphans {
			fmt.Fprintf(out, "  ledger kept: %s\n", p)
		}
	})
}
