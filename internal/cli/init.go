package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	var adminUser, adminPassword string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, database and first admin account",
		Long: `Writes config.yaml if missing, opens (and migrates) the database, and
creates an admin account when none exists yet. Running init again is safe.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			ctx := ctxOf(cmd)
			found, err := a.store.AdminExists(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if found {
				fmt.Fprintf(out, "Initialized %s (admin account already present)\n", a.dataDir)
				return nil
			}
			if adminUser == "" || adminPassword == "" {
				return fmt.Errorf("%w: no admin exists; --admin-user and --admin-password are required", types.ErrValidation)
			}
			if _, err := a.store.CreateUser(ctx, adminUser, adminPassword, types.RoleAdmin); err != nil {
				return err
			}
			a.logRun.Logger.Info("admin account created", "username", adminUser)
			fmt.Fprintf(out, "Initialized %s with admin %s\n", a.dataDir, adminUser)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminUser, "admin-user", "", "username of the first admin")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the first admin")
	return cmd
}
