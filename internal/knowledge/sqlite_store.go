// In file: internal/knowledge/sqlite_store.go
package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/dileep-u-k/tempusvestis/internal/llm"
)

func init() {
	// Registers sqlite-vec with every connection the go-sqlite3 driver opens.
	vec.Auto()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wardrobe_documents (
	id        TEXT PRIMARY KEY,
	section   TEXT NOT NULL,
	content   TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS knowledge_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const versionKey = "corpus_version"

// SQLiteStore keeps the corpus in a local SQLite file and ranks it with
// sqlite-vec's vec_distance_cosine.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store    = (*SQLiteStore)(nil)
	_ Replacer = (*SQLiteStore)(nil)
)

// OpenSQLiteStore opens (creating if needed) the database at path. An empty
// path opens an in-memory database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	// A single connection keeps ":memory:" databases from being per-connection.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create knowledge schema: %w", err)
	}
	zap.S().Debugf("Opened knowledge database %s (sqlite-vec %s)", path, vecVersion)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, vectors []Vector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertTx(ctx, tx, vectors); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace swaps the documents and the corpus version in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, vectors []Vector, version string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM wardrobe_documents; DELETE FROM knowledge_meta;`); err != nil {
		return fmt.Errorf("failed to clear knowledge database: %w", err)
	}
	if err := upsertTx(ctx, tx, vectors); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO knowledge_meta (key, value) VALUES (?, ?)`, versionKey, version); err != nil {
		return fmt.Errorf("failed to record corpus version: %w", err)
	}
	return tx.Commit()
}

func upsertTx(ctx context.Context, tx *sql.Tx, vectors []Vector) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO wardrobe_documents (id, section, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vectors {
		if _, err := stmt.ExecContext(ctx, v.ID, v.Document.Section, v.Document.Content, llm.VectorToBytes(v.Values)); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", v.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, section, content, vec_distance_cosine(embedding, ?) AS distance
		FROM wardrobe_documents
		ORDER BY distance ASC
		LIMIT ?`, llm.VectorToBytes(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.Document.ID, &m.Document.Section, &m.Document.Content, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		// Cosine distance is 1 - similarity.
		m.Score = 1 - distance
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wardrobe_documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Version(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM knowledge_meta WHERE key = ?`, versionKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read corpus version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) SetVersion(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO knowledge_meta (key, value) VALUES (?, ?)`, versionKey, version)
	if err != nil {
		return fmt.Errorf("failed to record corpus version: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM wardrobe_documents; DELETE FROM knowledge_meta;`); err != nil {
		return fmt.Errorf("failed to reset knowledge database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
