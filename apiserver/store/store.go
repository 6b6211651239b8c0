// Package store persists the blog's capture cards, page annotations, and
// plugin API keys in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marginote/marginote/dbopen"
	"github.com/marginote/marginote/envelope"
	"github.com/marginote/marginote/idgen"
)

// Schema is the store's DDL, applied via dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS cards (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	content         TEXT NOT NULL,
	source_url      TEXT NOT NULL,
	tags            TEXT NOT NULL DEFAULT '[]',
	annotation_type TEXT NOT NULL DEFAULT 'capture',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_created ON cards (created_at DESC);

CREATE TABLE IF NOT EXISTS annotations (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL,
	text            TEXT NOT NULL,
	xpath           TEXT NOT NULL,
	color           TEXT NOT NULL DEFAULT '',
	note            TEXT NOT NULL DEFAULT '',
	annotation_type TEXT NOT NULL DEFAULT 'highlight',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotations_url ON annotations (url, created_at);

CREATE TABLE IF NOT EXISTS api_keys (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL DEFAULT '',
	key_hash   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Card is one stored capture.
type Card struct {
	ID        string
	Title     string
	Content   string
	SourceURL string
	Tags      []string
	Kind      envelope.RecordKind
	CreatedAt time.Time
}

// APIKey is one issued plugin credential, stored hashed.
type APIKey struct {
	ID        string
	Label     string
	KeyHash   string
	CreatedAt time.Time
}

// Store wraps the SQLite handle.
type Store struct {
	db      *sql.DB
	cardID  idgen.Generator
	annotID idgen.Generator
	keyID   idgen.Generator
}

// New creates a Store over an opened database. The Schema must already be
// applied.
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		cardID:  idgen.Prefixed("card_", idgen.UUIDv7()),
		annotID: idgen.Prefixed("ann_", idgen.NanoID(12)),
		keyID:   idgen.Prefixed("key_", idgen.NanoID(12)),
	}
}

// InsertCard stores a capture record and returns the assigned card id.
func (s *Store) InsertCard(ctx context.Context, rec envelope.CaptureRecord) (string, error) {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return "", fmt.Errorf("store: encode tags: %w", err)
	}
	if rec.Kind == "" {
		rec.Kind = envelope.RecordCapture
	}

	id := s.cardID()
	_, err = dbopen.Exec(ctx, s.db,
		`INSERT INTO cards (id, title, content, source_url, tags, annotation_type, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		id, rec.Title, rec.Content, rec.SourceURL, string(tags), string(rec.Kind), time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("store: insert card: %w", err)
	}
	return id, nil
}

// RecentCards returns the newest cards, newest first. Card ids are
// time-sortable, so the id tie-break keeps same-second cards in
// insertion order.
func (s *Store) RecentCards(ctx context.Context, limit int) ([]Card, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, source_url, tags, annotation_type, created_at
		 FROM cards ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var c Card
		var tags, kind string
		var created int64
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &c.SourceURL, &tags, &kind, &created); err != nil {
			return nil, fmt.Errorf("store: scan card: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("store: decode tags: %w", err)
		}
		c.Kind = envelope.RecordKind(kind)
		c.CreatedAt = time.Unix(created, 0)
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// ReplaceAnnotations swaps the full annotation set of a page in one
// transaction and returns the assigned ids, in input order. The sync
// payload is the page's authoritative state, so stale rows go with it.
func (s *Store) ReplaceAnnotations(ctx context.Context, pageURL string, anns []envelope.Annotation) ([]string, error) {
	ids := make([]string, len(anns))
	now := time.Now().Unix()

	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE url = ?`, pageURL); err != nil {
			return err
		}
		for i, a := range anns {
			kind := a.Kind
			if kind == "" {
				kind = envelope.AnnotationHighlight
			}
			ids[i] = s.annotID()
			_, err := tx.ExecContext(ctx,
				`INSERT INTO annotations (id, url, text, xpath, color, note, annotation_type, created_at)
				 VALUES (?,?,?,?,?,?,?,?)`,
				ids[i], pageURL, a.Text, a.XPath, a.Color, a.Note, string(kind), now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: replace annotations: %w", err)
	}
	return ids, nil
}

// AnnotationsByURL returns a page's annotations in insertion order.
func (s *Store) AnnotationsByURL(ctx context.Context, pageURL string) ([]envelope.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, xpath, color, note, annotation_type
		 FROM annotations WHERE url = ? ORDER BY rowid`, pageURL)
	if err != nil {
		return nil, fmt.Errorf("store: annotations: %w", err)
	}
	defer rows.Close()

	anns := []envelope.Annotation{}
	for rows.Next() {
		var a envelope.Annotation
		var kind string
		if err := rows.Scan(&a.ID, &a.Text, &a.XPath, &a.Color, &a.Note, &kind); err != nil {
			return nil, fmt.Errorf("store: scan annotation: %w", err)
		}
		a.Kind = envelope.AnnotationKind(kind)
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

// InsertKey stores a hashed API key and returns its id.
func (s *Store) InsertKey(ctx context.Context, label, keyHash string) (string, error) {
	id := s.keyID()
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO api_keys (id, label, key_hash, created_at) VALUES (?,?,?,?)`,
		id, label, keyHash, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("store: insert key: %w", err)
	}
	return id, nil
}

// KeyHashes returns every stored key hash. The key set is expected to
// stay small (one per device), so auth compares against all of them.
func (s *Store) KeyHashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key_hash FROM api_keys`)
	if err != nil {
		return nil, fmt.Errorf("store: key hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("store: scan key: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
