package tool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const definitionSQLiteSchema = `
CREATE TABLE IF NOT EXISTS tool_definitions (
	name TEXT PRIMARY KEY,
	dimension TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tool_definitions_dimension
ON tool_definitions(dimension);`

// SQLiteStoreConfig configures the SQLite definition store.
type SQLiteStoreConfig struct {
	DSN string
}

// SQLiteStore persists tool definitions in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed definition store.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("tool sqlite store dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tool sqlite store open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool sqlite store set WAL mode: %w", err)
	}
	if _, err := db.Exec(definitionSQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tool sqlite store create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payload, created_at, updated_at
FROM tool_definitions
ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("tool sqlite store list: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tool sqlite store list rows: %w", err)
	}
	return defs, nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (Definition, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT payload, created_at, updated_at
FROM tool_definitions
WHERE name = ?`, name)

	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Definition{}, false, nil
		}
		return Definition{}, false, err
	}
	return def, true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	def.UpdatedAt = now
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}

	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("tool sqlite store encode: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO tool_definitions (name, dimension, payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	dimension = excluded.dimension,
	payload = excluded.payload,
	updated_at = excluded.updated_at`,
		def.Name,
		def.Dimension,
		payload,
		def.CreatedAt.Format(time.RFC3339Nano),
		def.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("tool sqlite store upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tool_definitions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("tool sqlite store delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tool sqlite store delete affected rows: %w", err)
	}
	if affected == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type definitionScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(scanner definitionScanner) (Definition, error) {
	var (
		payload   []byte
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&payload, &createdAt, &updatedAt); err != nil {
		return Definition{}, err
	}

	var def Definition
	if err := json.Unmarshal(payload, &def); err != nil {
		return Definition{}, fmt.Errorf("tool sqlite store decode: %w", err)
	}

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Definition{}, fmt.Errorf("tool sqlite store parse created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Definition{}, fmt.Errorf("tool sqlite store parse updated_at: %w", err)
	}
	def.CreatedAt = created
	def.UpdatedAt = updated
	return def, nil
}

var _ Store = (*SQLiteStore)(nil)
