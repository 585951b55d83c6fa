package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sequencer numbers journal rows across all event tables so attempts and
// decisions of one turn keep their relative order. The counter lives in
// the database and survives reopening.
type sequencer struct {
	db *sql.DB
}

func newSequencer(db *sql.DB) (*sequencer, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS journal_sequence (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("create journal_sequence: %w", err)
	}
	return &sequencer{db: db}, nil
}

// Next returns 1 on first use and one more than the previous value after.
func (s *sequencer) Next(ctx context.Context) (int64, error) {
	const upsert = `INSERT INTO journal_sequence (name, value) VALUES ('journal', 1)
		ON CONFLICT (name) DO UPDATE SET value = value + 1
		RETURNING value`
	var n int64
	if err := s.db.QueryRowContext(ctx, upsert).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
