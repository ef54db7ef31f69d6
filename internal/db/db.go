package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by the store.
type Dialect int

const (
	Postgres Dialect = iota + 1
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	}
	return "unknown"
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// ColumnType is a dialect-neutral column type used by migration steps.
type ColumnType int

const (
	Integer ColumnType = iota + 1
	Float
	Text
	Timestamp
)

func (d Dialect) typeName(t ColumnType) string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case Timestamp:
		if d == Postgres {
			return "TIMESTAMPTZ"
		}
		// modernc.org/sqlite only converts TIMESTAMP/DATETIME/DATE columns back into time.Time.
		return "TIMESTAMP"
	}
	return "TEXT"
}

func (d Dialect) serialPrimaryKey() string {
	if d == Postgres {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const sqliteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite&_txlock=immediate"

// ParseURL maps a DATABASE_URL onto a dialect and a driver DSN.
// postgres:// and postgresql:// URLs go to pgx; anything else is treated as a
// sqlite file, accepting sqlite:///relative.db, sqlite:////abs.db, file: and bare paths.
func ParseURL(databaseURL string) (Dialect, string) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return Postgres, databaseURL
	}
	path := SQLitePath(databaseURL)
	return SQLite, "file:" + path + "?" + sqliteParams
}

// SQLitePath returns the file path behind a sqlite DATABASE_URL, or "" for postgres URLs.
func SQLitePath(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return ""
	}
	path := databaseURL
	for _, prefix := range []string{"sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(path, prefix) {
			path = strings.TrimPrefix(path, prefix)
			break
		}
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// Open connects to the store behind databaseURL and verifies it with a ping.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, Dialect, error) {
	dialect, dsn := ParseURL(databaseURL)
	conn, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == Postgres {
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxLifetime(2 * time.Hour)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, dialect, nil
}
