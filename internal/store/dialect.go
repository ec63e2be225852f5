package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

type dialect interface {
	driver() string
	autoIncrementPK() string
	rebind(query string) string
}

type sqliteDialect struct{}

func (sqliteDialect) driver() string             { return types.DriverSQLite }
func (sqliteDialect) autoIncrementPK() string    { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (sqliteDialect) rebind(query string) string { return query }

type postgresDialect struct{}

func (postgresDialect) driver() string             { return types.DriverPostgres }
func (postgresDialect) autoIncrementPK() string    { return "BIGSERIAL PRIMARY KEY" }
func (postgresDialect) rebind(query string) string { return Rebind(query) }

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
// Question marks inside single-quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isUniqueViolation reports whether err is a unique constraint failure
// from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// parseTime converts a scanned timestamp to time.Time. SQLite hands back
// strings (or time.Time for columns declared TIMESTAMP); Postgres hands
// back time.Time.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTime(string(t))
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			types.TimestampLayout,
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.ParseInLocation(layout, t, time.Local); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
