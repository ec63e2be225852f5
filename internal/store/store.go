// Package store is the relational metadata store for companies, boards,
// orders and users. It runs on SQLite or PostgreSQL; every call acquires
// its own connection and releases it before returning.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/lo"

	"github.com/mesh-intelligence/boardtrack/internal/auth"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Store is the handle passed to every component that needs metadata.
type Store struct {
	db      *sql.DB
	dialect dialect
	hasher  auth.Hasher
	log     *slog.Logger
	now     func() time.Time
}

// Options carries the collaborators a Store uses. Zero values select
// bcrypt, a discarding logger and the wall clock.
type Options struct {
	Hasher auth.Hasher
	Logger *slog.Logger
	Now    func() time.Time
}

// querier is satisfied by both *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open connects to the configured database and brings its schema up to date.
func Open(cfg types.DatabaseConfig, opts Options) (*Store, error) {
	switch cfg.Driver {
	case types.DriverSQLite:
		return openSQLite(cfg.SQLite.Path, opts)
	case types.DriverPostgres:
		return openPostgres(cfg.Postgres, opts)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrDriverUnknown, cfg.Driver)
	}
}

func openSQLite(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, types.ErrSQLitePathEmpty
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time, and no idle connection kept between calls.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(0)

	s := newStore(sqlDB, sqliteDialect{}, opts)
	if err := s.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func openPostgres(cfg types.PostgresConfig, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetMaxIdleConns(0)

	s := newStore(sqlDB, postgresDialect{}, opts)
	if err := s.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

func newStore(db *sql.DB, d dialect, opts Options) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		hasher:  opts.Hasher,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if s.hasher == nil {
		s.hasher = auth.Bcrypt{}
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.dialect.driver() }

// q rewrites ? placeholders for the active dialect.
func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}

// withConn runs fn on a connection acquired for this call only.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// withTx runs fn inside a transaction on a connection acquired for this
// call only. The transaction is committed when fn returns nil and rolled
// back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// logFailure logs *err, if any, with the operation name and identifiers.
// Deferred from every exported method.
func (s *Store) logFailure(op string, err *error, attrs ...any) {
	if *err == nil {
		return
	}
	level := lo.Ternary(errors.Is(*err, types.ErrValidation) || errors.Is(*err, types.ErrNotFound) || errors.Is(*err, types.ErrAuthFailure),
		slog.LevelWarn, slog.LevelError)
	s.log.Log(context.Background(), level, "store operation failed",
		append([]any{"op", op, "err", *err}, attrs...)...)
}

// exists reports whether query returns at least one row.
func (s *Store) exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, s.q(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) timestamp() string {
	return s.now().Format(types.TimestampLayout)
}
