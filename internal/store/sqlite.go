package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLite keeps save payloads in a local SQLite database, one row per slot.
// Each save gets a fresh revision id so external tooling can tell writes
// apart.
type SQLite struct {
	db   *sql.DB
	slot string
}

// OpenSQLite opens/creates the database at dbPath and runs migrations.
// slot names the save slot this store reads and writes.
func OpenSQLite(dbPath, slot string) (*SQLite, error) {
	if slot == "" {
		return nil, errors.New("save slot must not be empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &SQLite{db: db, slot: slot}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			revision TEXT NOT NULL,
			payload BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Load returns the payload last saved to this store's slot.
func (s *SQLite) Load(ctx context.Context) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM saves WHERE slot = ?`, s.slot,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load slot %q: %w", s.slot, err)
	}
	return payload, true, nil
}

// Save upserts the payload for this store's slot.
func (s *SQLite) Save(ctx context.Context, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (slot, revision, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
			revision = excluded.revision,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		s.slot, uuid.NewString(), payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", s.slot, err)
	}
	return nil
}
