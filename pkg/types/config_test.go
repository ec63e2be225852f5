package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		c := Defaults()
		c.Database.SQLite.Path = "/tmp/data/boardtrack.db"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults with sqlite path are valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "empty driver returns ErrDriverEmpty",
			mutate:  func(c *Config) { c.Database.Driver = "" },
			wantErr: ErrDriverEmpty,
		},
		{
			name:    "unknown driver returns ErrDriverUnknown",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: ErrDriverUnknown,
		},
		{
			name:    "sqlite without path returns ErrSQLitePathEmpty",
			mutate:  func(c *Config) { c.Database.SQLite.Path = "" },
			wantErr: ErrSQLitePathEmpty,
		},
		{
			name: "postgres without host returns ErrPostgresHostEmpty",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.Postgres.Host = ""
			},
			wantErr: ErrPostgresHostEmpty,
		},
		{
			name:    "postgres with default host is valid",
			mutate:  func(c *Config) { c.Database.Driver = DriverPostgres },
			wantErr: nil,
		},
		{
			name:    "zero replace attempts rejected",
			mutate:  func(c *Config) { c.Ledger.ReplaceAttempts = 0 },
			wantErr: ErrReplaceAttemptsInvalid,
		},
		{
			name:    "negative replace delay rejected",
			mutate:  func(c *Config) { c.Ledger.ReplaceDelay = -1 },
			wantErr: ErrLedgerDurationsInvalid,
		},
		{
			name:    "unknown log level rejected",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: ErrLogLevelUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
