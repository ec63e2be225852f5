package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Table DDL. %[1]s is the dialect's auto-increment primary key.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    user_id %[1]s,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin', 'user')),
    created_at TEXT NOT NULL
)`

	createCompanies = `CREATE TABLE IF NOT EXISTS companies (
    company_id %[1]s,
    company_name TEXT NOT NULL UNIQUE,
    client_path TEXT NOT NULL,
    cust_id TEXT,
    archived INTEGER NOT NULL DEFAULT 0
)`

	createBoards = `CREATE TABLE IF NOT EXISTS boards (
    board_id %[1]s,
    company_id BIGINT NOT NULL REFERENCES companies(company_id),
    board_name TEXT NOT NULL,
    board_path TEXT NOT NULL DEFAULT '',
    archived INTEGER NOT NULL DEFAULT 0
)`

	createOrders = `CREATE TABLE IF NOT EXISTS orders (
    order_id %[1]s,
    order_number TEXT NOT NULL,
    company_id BIGINT NOT NULL REFERENCES companies(company_id),
    board_id BIGINT REFERENCES boards(board_id),
    status TEXT NOT NULL DEFAULT 'Pending',
    file_path TEXT NOT NULL,
    created_at TEXT NOT NULL,
    created_by BIGINT NOT NULL REFERENCES users(user_id)
)`
)

var tableDDL = []string{createUsers, createCompanies, createBoards, createOrders}

var indexDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_boards_company ON boards(company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_company ON orders(company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_board ON orders(board_id)`,
}

// orderNumberIndex is created last: a legacy database may hold duplicate
// order numbers, in which case the index is skipped with a warning.
const orderNumberIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_number ON orders(order_number)`

// legacyColumns were added after the first release. Databases created
// before then get them on open.
var legacyColumns = []struct {
	table  string
	column string
	def    string
}{
	{"companies", "cust_id", "TEXT"},
	{"companies", "archived", "INTEGER NOT NULL DEFAULT 0"},
	{"boards", "board_path", "TEXT NOT NULL DEFAULT ''"},
	{"boards", "archived", "INTEGER NOT NULL DEFAULT 0"},
}

func (s *Store) migrate(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		for _, ddl := range tableDDL {
			if _, err := conn.ExecContext(ctx, fmt.Sprintf(ddl, s.dialect.autoIncrementPK())); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		}
		for _, c := range legacyColumns {
			ok, err := s.columnExists(ctx, conn, c.table, c.column)
			if err != nil {
				return fmt.Errorf("inspect %s.%s: %w", c.table, c.column, err)
			}
			if ok {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.def)
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
			}
			s.log.Info("migrated legacy schema", "table", c.table, "column", c.column)
		}
		for _, ddl := range indexDDL {
			if _, err := conn.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("create index: %w", err)
			}
		}
		if _, err := conn.ExecContext(ctx, orderNumberIndex); err != nil {
			if !isUniqueViolation(err) {
				return fmt.Errorf("create order number index: %w", err)
			}
			s.log.Warn("duplicate order numbers present; unique index not created", "err", err)
		}
		return nil
	})
}

func (s *Store) columnExists(ctx context.Context, q querier, table, column string) (bool, error) {
	if s.dialect.driver() == types.DriverPostgres {
		return s.exists(ctx, q,
			`SELECT 1 FROM information_schema.columns
			 WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`,
			table, column)
	}
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
