// Package cli implements the boardtrack command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardtrack/internal/ledger"
	"github.com/mesh-intelligence/boardtrack/internal/logging"
	"github.com/mesh-intelligence/boardtrack/internal/paths"
	"github.com/mesh-intelligence/boardtrack/internal/store"
	"github.com/mesh-intelligence/boardtrack/internal/tracker"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Environment variables holding login credentials when the flags are
// not given.
const (
	envUser     = "BOARDTRACK_USER"
	envPassword = "BOARDTRACK_PASSWORD"
)

// errUsage marks malformed command lines.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	user      string
	password  string
}

// app is the state of one command run. Storage is opened on first use.
type app struct {
	flags   rootFlags
	now     func() time.Time
	cfg     types.Config
	dataDir string
	logRun  *logging.Run
	store   *store.Store
	tracker *tracker.Service
}

// NewRootCmd creates the top-level "boardtrack" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

// newRoot returns the root command and the app state its commands share.
// The caller closes the app after Execute returns.
func newRoot() (*cobra.Command, *app) {
	a := &app{now: time.Now}
	root := &cobra.Command{
		Use:   "boardtrack",
		Short: "Track serialized boards through manufacturing test",
		Long: `boardtrack keeps companies, boards, orders and users in a database and
records every serial's test result in a per-order XLSX ledger.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (env "+paths.EnvDataDir+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVarP(&a.flags.user, "user", "u", "", "username to act as (env "+envUser+")")
	root.PersistentFlags().StringVarP(&a.flags.password, "password", "p", "", "password (env "+envPassword+")")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newCompanyCmd(a),
		newBoardCmd(a),
		newOrderCmd(a),
		newResultCmd(a),
		newSerialCmd(a),
		newUserCmd(a),
	)
	return root, a
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root, a := newRoot()
	err := errors.Join(root.Execute(), a.close())
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, "boardtrack:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrAuthFailure):
		return exitUserError
	default:
		return exitSysError
	}
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}

// open loads the configuration and opens the store, ledger writer and
// tracker service.
func (a *app) open(cmd *cobra.Command) error {
	if a.store != nil {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, configDataDir, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, configDataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = paths.DatabaseFile(a.dataDir)
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = paths.LogDir(a.dataDir)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: config: %w", types.ErrValidation, err)
	}
	a.cfg = cfg

	a.logRun, err = logging.Setup(cfg.Log, cmd.ErrOrStderr(), a.now())
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	log := a.logRun.Logger
	a.store, err = store.Open(cfg.Database, store.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	a.tracker = tracker.New(a.store, ledger.NewWriter(ledger.OptionsFromConfig(cfg.Ledger, log)), log)
	log.Debug("storage opened", "driver", cfg.Database.Driver, "data_dir", a.dataDir)
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.logRun != nil {
		errs = append(errs, a.logRun.Close())
		a.logRun = nil
	}
	return errors.Join(errs...)
}

// login opens storage and authenticates the acting user.
func (a *app) login(cmd *cobra.Command) (*types.User, error) {
	if err := a.open(cmd); err != nil {
		return nil, err
	}
	name := firstNonEmpty(a.flags.user, os.Getenv(envUser))
	if name == "" {
		return nil, fmt.Errorf("%w: --user or %s is required", types.ErrAuthFailure, envUser)
	}
	return a.store.Authenticate(ctxOf(cmd), name, firstNonEmpty(a.flags.password, os.Getenv(envPassword)))
}

// loginAdmin is login restricted to admin accounts.
func (a *app) loginAdmin(cmd *cobra.Command) (*types.User, error) {
	u, err := a.login(cmd)
	if err != nil {
		return nil, err
	}
	if u.Role != types.RoleAdmin {
		return nil, fmt.Errorf("%w: %s is not an admin", types.ErrAuthFailure, u.Username)
	}
	return u, nil
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
