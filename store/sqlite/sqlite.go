/*
Package sqlite opens the SQL store on SQLite.

PURPOSE:
  Local development, the demo server and tests. In production the same
  sqlstore.Store runs on PostgreSQL, see store/postgres.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  The pool is limited to one connection. SQLite allows a single writer
  anyway, and ":memory:" databases are per connection, so a larger pool
  would silently hand out empty databases.

USAGE:
  store, err := sqlite.New("./data/revenue.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: The shared implementation
*/
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/revenue-engine/store/sqlstore"
)

// DriverName is the database/sql driver registered by go-sqlite3.
const DriverName = "sqlite3"

// Dialect is the SQLite flavour of sqlstore.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueConstraintError,
}

// New creates a store on the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*sqlstore.Store, error) {
	db, err := sql.Open(DriverName, dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store, err := sqlstore.New(db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(dbPath string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" && !strings.Contains(dbPath, "mode=memory") {
		params += "&_journal_mode=WAL"
	}
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + params
	}
	return dbPath + "?" + params
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
