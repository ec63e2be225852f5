package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(
		newUserAddCmd(a),
		newUserListCmd(a),
		newUserDeleteCmd(a),
		newUserPasswdCmd(a),
	)
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var role, password string
	cmd := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Add a user account",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			id, err := a.store.CreateUser(ctxOf(cmd), args[0], password, types.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (id %d)\n", role, args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(types.RoleUser), "admin or user")
	cmd.Flags().StringVar(&password, "new-password", "", "password of the new account (required)")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loginAdmin(cmd); err != nil {
				return err
			}
			users, err := a.store.ListUsers(ctxOf(cmd))
			if err != nil {
				return err
			}
			return a.emit(cmd, users, func() {
				printTable(cmd, []string{"ID", "USERNAME", "ROLE", "CREATED"},
					lo.Map(users, func(u types.User, _ int) []string {
						return []string{idString(u.UserID), u.Username, string(u.Role), u.CreatedAt.Format(types.TimestampLayout)}
					}))
			})
		},
	}
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user account that created no orders",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.loginAdmin(cmd)
			if err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			target, err := a.store.GetUserByUsername(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteUser(ctx, actor.UserID, target.UserID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", target.Username)
			return nil
		},
	}
}

func newUserPasswdCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd [USERNAME]",
		Short: "Change a password; admins may change any account's",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := a.login(cmd)
			if err != nil {
				return err
			}
			target := actor
			if len(args) == 1 && args[0] != actor.Username {
				if actor.Role != types.RoleAdmin {
					return fmt.Errorf("%w: only admins may change another user's password", types.ErrAuthFailure)
				}
				if target, err = a.store.GetUserByUsername(ctxOf(cmd), args[0]); err != nil {
					return err
				}
			}
			if err := a.store.ChangePassword(ctxOf(cmd), target.UserID, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Changed password for %s\n", target.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "new-password", "", "new password (required)")
	_ = cmd.MarkFlagRequired("new-password")
	return cmd
}
