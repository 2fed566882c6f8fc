// Package legacy reads the Core Data style SQLite store written by earlier
// releases. The physical schema drifted across releases without a version
// marker, so every query is built from what the prober finds at runtime.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Legacy table names
const (
	TableHome     = "ZHOME"
	TablePolicy   = "ZINSURANCEPOLICY"
	TableLocation = "ZINVENTORYLOCATION"
	TableItem     = "ZINVENTORYITEM"
	TableLabel    = "ZINVENTORYLABEL"
)

// EntityTables lists every table the migration knows how to read
var EntityTables = []string{TableHome, TablePolicy, TableLocation, TableItem, TableLabel}

// Store is a read-only handle on a legacy store file
type Store struct {
	db *sql.DB
}

// Open opens the legacy store at path in read-only mode
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to legacy store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the file handle
func (s *Store) Close() error {
	return s.db.Close()
}

// quote renders an identifier for interpolation into SQL
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
