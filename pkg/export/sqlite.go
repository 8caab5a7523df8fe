package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeFmt = "2006-01-02 15:04:05.999999999Z07:00"

const sqliteSchema = `-- item table
CREATE TABLE IF NOT EXISTS items(
	id TEXT PRIMARY KEY,
	slug TEXT,
	title TEXT,
	url TEXT,
	content TEXT,
	exported_at TEXT
);

CREATE TABLE IF NOT EXISTS highlights(
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	position INTEGER,
	quote TEXT,
	annotation TEXT
);

CREATE INDEX IF NOT EXISTS highlights_item_id ON highlights(item_id);
`

const upsertItemSQL = `INSERT INTO items(id, slug, title, url, content, exported_at) VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	slug = excluded.slug,
	title = excluded.title,
	url = excluded.url,
	content = excluded.content,
	exported_at = excluded.exported_at`

const deleteHighlightsSQL = `DELETE FROM highlights WHERE item_id = ?`

const insertHighlightSQL = `INSERT OR REPLACE INTO highlights(id, item_id, position, quote, annotation) VALUES(?, ?, ?, ?, ?)`

// SQLiteSink stores items and highlights in an sqlite3 database.
// Items are upserted by id so repeated exports refresh rows in place.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens (or creates) the database at path and ensures the schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteSink{db: db, path: path}, nil
}

// Name implements Sink.
func (s *SQLiteSink) Name() string {
	return "sqlite"
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, item client.Item) (int, error) {
	id := item.ID
	if id == "" {
		id = item.Key()
	}
	if id == "" {
		return 0, ErrMissingSlug
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertItemSQL,
		id,
		nilIfEmpty(item.Slug),
		nilIfEmpty(item.Title),
		nilIfEmpty(item.OriginalArticleURL),
		item.Content,
		time.Now().UTC().Format(sqliteTimeFmt),
	); err != nil {
		return 0, fmt.Errorf("upsert item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteHighlightsSQL, id); err != nil {
		return 0, fmt.Errorf("clear highlights: %w", err)
	}

	n := len(item.Content)
	for i, h := range item.Highlights {
		hid := h.ID
		if hid == "" {
			hid = fmt.Sprintf("%s#%d", id, i)
		}
		if _, err := tx.ExecContext(ctx, insertHighlightSQL, hid, id, i, h.Quote, nilIfEmpty(h.Annotation)); err != nil {
			return 0, fmt.Errorf("insert highlight %s: %w", hid, err)
		}
		n += len(h.Quote) + len(h.Annotation)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of stored items and highlights.
func (s *SQLiteSink) Count(ctx context.Context) (items, highlights int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&items); err != nil {
		return
	}
	err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM highlights`).Scan(&highlights)
	return
}

// Content returns the stored content of an item.
func (s *SQLiteSink) Content(ctx context.Context, id string) (string, error) {
	var content sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content FROM items WHERE id = ?`, id).Scan(&content)
	return content.String, err
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nilIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
