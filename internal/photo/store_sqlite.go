package photo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout is fixed-width so stored timestamps order lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is a Store backed by a single SQLite table of JSON documents.
// It lets a kiosk run without network access to a hosted document store.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent uploads.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := createDocumentTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func createDocumentTable(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`
	_, err := db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add implements Store.Add.
func (s *SQLiteStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	now := s.now()
	resolved := resolveFields(fields, now)
	for k, v := range resolved {
		if t, ok := v.(time.Time); ok {
			resolved[k] = t.UTC().Format(sqliteTimeLayout)
		}
	}

	body, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	query := `INSERT INTO documents (id, collection, fields, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, collection, string(body), now.Format(sqliteTimeLayout)); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// OrderedBy implements Store.OrderedBy.
func (s *SQLiteStore) OrderedBy(ctx context.Context, collection, field string, dir Direction) ([]Document, error) {
	order := "ASC"
	if dir == Desc {
		order = "DESC"
	}
	query := `SELECT id, fields FROM documents WHERE collection = ?
	          ORDER BY json_extract(fields, ?) ` + order + `, created_at ` + order
	rows, err := s.db.QueryContext(ctx, query, collection, "$."+field)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		for k, v := range fields {
			if str, ok := v.(string); ok {
				if t, err := time.Parse(sqliteTimeLayout, str); err == nil {
					fields[k] = t
				}
			}
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
