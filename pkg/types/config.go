package types

import (
	"errors"
	"time"
)

// Config holds everything needed to open the metadata store and write ledgers.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database" mapstructure:"database"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver   string         `json:"driver" yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `json:"sqlite" yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" yaml:"postgres" mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" mapstructure:"sslmode"`
}

// LedgerConfig tunes the ledger mutation protocol.
type LedgerConfig struct {
	ReplaceAttempts int           `json:"replace_attempts" yaml:"replace_attempts" mapstructure:"replace_attempts"`
	ReplaceDelay    time.Duration `json:"replace_delay" yaml:"replace_delay" mapstructure:"replace_delay"`
	LockTimeout     time.Duration `json:"lock_timeout" yaml:"lock_timeout" mapstructure:"lock_timeout"`
	LockStaleAfter  time.Duration `json:"lock_stale_after" yaml:"lock_stale_after" mapstructure:"lock_stale_after"`
}

type LogConfig struct {
	Dir   string `json:"dir" yaml:"dir" mapstructure:"dir"`
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config validation errors.
var (
	ErrDriverEmpty            = errors.New("database driver must not be empty")
	ErrDriverUnknown          = errors.New("unknown database driver")
	ErrSQLitePathEmpty        = errors.New("sqlite path must not be empty")
	ErrPostgresHostEmpty      = errors.New("postgres host must not be empty")
	ErrReplaceAttemptsInvalid = errors.New("ledger replace attempts must be positive")
	ErrLedgerDurationsInvalid = errors.New("ledger durations must not be negative")
	ErrLogLevelUnknown        = errors.New("unknown log level")
)

var knownDrivers = map[string]bool{
	DriverSQLite:   true,
	DriverPostgres: true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns a Config with the SQLite driver and the standard ledger
// retry settings. The SQLite path and log dir are left for the caller to
// resolve against its data directory.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "boardtrack",
				User:     "boardtrack",
				SSLMode:  "disable",
			},
		},
		Ledger: LedgerConfig{
			ReplaceAttempts: 3,
			ReplaceDelay:    250 * time.Millisecond,
			LockTimeout:     5 * time.Second,
			LockStaleAfter:  2 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks that the Config is well-formed and returns one of the
// sentinel errors above on failure.
func (c Config) Validate() error {
	if c.Database.Driver == "" {
		return ErrDriverEmpty
	}
	if !knownDrivers[c.Database.Driver] {
		return ErrDriverUnknown
	}
	if c.Database.Driver == DriverSQLite && c.Database.SQLite.Path == "" {
		return ErrSQLitePathEmpty
	}
	if c.Database.Driver == DriverPostgres && c.Database.Postgres.Host == "" {
		return ErrPostgresHostEmpty
	}
	if c.Ledger.ReplaceAttempts <= 0 {
		return ErrReplaceAttemptsInvalid
	}
	if c.Ledger.ReplaceDelay < 0 || c.Ledger.LockTimeout < 0 || c.Ledger.LockStaleAfter < 0 {
		return ErrLedgerDurationsInvalid
	}
	if !knownLogLevels[c.Log.Level] {
		return ErrLogLevelUnknown
	}
	return nil
}
