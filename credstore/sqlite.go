package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Schema creates the single-slot credential table. Pass it to
// dbopen.Open via WithSchema, or execute it before constructing SQLite.
const Schema = `
CREATE TABLE IF NOT EXISTS credential (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	api_key    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite stores the credential in a one-row table. Meant for headless
// hosts where no OS keyring is available.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed store on an open database that has
// had Schema applied.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Get(ctx context.Context) (string, error) {
	var cred string
	err := s.db.QueryRowContext(ctx,
		`SELECT api_key FROM credential WHERE slot = 1`).Scan(&cred)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: sqlite get: %w", err)
	}
	return cred, nil
}

func (s *SQLite) Set(ctx context.Context, credential string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential (slot, api_key, updated_at)
		VALUES (1, ?, unixepoch())
		ON CONFLICT (slot) DO UPDATE SET
			api_key = excluded.api_key,
			updated_at = excluded.updated_at`,
		credential)
	if err != nil {
		return fmt.Errorf("credstore: sqlite set: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential WHERE slot = 1`); err != nil {
		return fmt.Errorf("credstore: sqlite clear: %w", err)
	}
	return nil
}
