package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/boardtrack/internal/paths"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// cfgKeyDataDir is the config.yaml key for the data directory. It is
// resolved through paths.ResolveDataDir rather than bound to the
// environment, so that the flag > config > env order holds.
const cfgKeyDataDir = "data_dir"

const envPrefix = "BOARDTRACK"

// fileConfig is the on-disk shape of config.yaml.
type fileConfig struct {
	DataDir      string `yaml:"data_dir"`
	types.Config `yaml:",inline"`
}

// configDefaults flattens the built-in defaults into viper keys.
func configDefaults() map[string]any {
	d := types.Defaults()
	return map[string]any{
		"database.driver":            d.Database.Driver,
		"database.sqlite.path":       d.Database.SQLite.Path,
		"database.postgres.host":     d.Database.Postgres.Host,
		"database.postgres.port":     d.Database.Postgres.Port,
		"database.postgres.database": d.Database.Postgres.Database,
		"database.postgres.user":     d.Database.Postgres.User,
		"database.postgres.password": d.Database.Postgres.Password,
		"database.postgres.sslmode":  d.Database.Postgres.SSLMode,
		"ledger.replace_attempts":    d.Ledger.ReplaceAttempts,
		"ledger.replace_delay":       d.Ledger.ReplaceDelay,
		"ledger.lock_timeout":        d.Ledger.LockTimeout,
		"ledger.lock_stale_after":    d.Ledger.LockStaleAfter,
		"log.dir":                    d.Log.Dir,
		"log.level":                  d.Log.Level,
	}
}

// envKey maps a viper key to its environment variable, e.g.
// database.postgres.host to BOARDTRACK_DATABASE_POSTGRES_HOST.
func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loadConfig reads config.yaml from configDir, creating it with defaults
// when missing. Environment variables override file values for every key
// except data_dir, which is returned separately.
func loadConfig(configDir string) (types.Config, string, error) {
	path := paths.ConfigFile(configDir)
	if err := writeConfigIfMissing(path); err != nil {
		return types.Config{}, "", err
	}

	v := viper.New()
	for key, val := range configDefaults() {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, envKey(key)); err != nil {
			return types.Config{}, "", fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return types.Config{}, "", fmt.Errorf("%w: read config %s: %w", types.ErrValidation, path, err)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("%w: parse config %s: %w", types.ErrValidation, path, err)
	}
	return cfg, v.GetString(cfgKeyDataDir), nil
}

// writeConfigIfMissing creates config.yaml populated with the defaults.
// An existing file is left untouched.
func writeConfigIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(fileConfig{Config: types.Defaults()})
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	header := "# boardtrack configuration.\n" +
		"# Empty data_dir, database.sqlite.path and log.dir resolve under the data directory.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
