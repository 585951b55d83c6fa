// Package store is the SQLite event journal: verified attempts, turn
// decisions, LLM requests and archived sessions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store owns the database connection and the journal.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	journal *Journal
}

// pragmas are applied in order on the single pooled connection.
var pragmas = [][2]string{
	{"journal_mode", "WAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
	{"synchronous", "NORMAL"},
}

// Open is OpenContext with a background context.
func Open(dsn string) (*Store, error) {
	return OpenContext(context.Background(), dsn)
}

// OpenContext opens the SQLite database at dsn, migrates the journal
// tables and returns the store. ":memory:" gives a throwaway database.
func OpenContext(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas and in-memory databases are per connection.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		stmt := fmt.Sprintf("PRAGMA %s = %s", p[0], p[1])
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	seq, err := newSequencer(db)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return &Store{db: db, drv: drv, journal: &Journal{db: db, seq: seq}}, nil
}

// Journal returns the event journal backed by this store.
func (s *Store) Journal() *Journal { return s.journal }

// DB exposes the connection for raw queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.drv.Close() }

// DefaultDBPath is $MATHGUIDE_DB when set, otherwise mathguide/mathguide.db
// under $XDG_DATA_HOME or ~/.local/share. The parent directory is created.
func DefaultDBPath() (string, error) {
	p := os.Getenv("MATHGUIDE_DB")
	if p == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home dir: %w", err)
			}
			base = filepath.Join(home, ".local", "share")
		}
		p = filepath.Join(base, "mathguide", "mathguide.db")
	}
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
