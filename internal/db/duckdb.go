// Package db opens the local DuckDB store.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// FileName is the store inside the data directory
const FileName = "history.duckdb"

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id              VARCHAR PRIMARY KEY,
	conversation_id BIGINT NOT NULL,
	question        VARCHAR NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS answers (
	generation_id VARCHAR NOT NULL,
	position      INTEGER NOT NULL,
	model_id      VARCHAR NOT NULL,
	model_name    VARCHAR NOT NULL,
	brand         VARCHAR NOT NULL,
	state         VARCHAR NOT NULL,
	content       VARCHAR NOT NULL,
	error         VARCHAR NOT NULL,
	PRIMARY KEY (generation_id, position)
);
`

// Open opens the DuckDB file at path, creating it and its schema when missing.
// An empty path opens an in-memory database.
func Open(path string) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	// DuckDB works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// OpenDir opens the store inside a data directory
func OpenDir(dir string) (*sql.DB, error) {
	return Open(filepath.Join(dir, FileName))
}
