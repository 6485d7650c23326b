package graph

import (
	"database/sql"
	"fmt"
)

const createEntitiesTable = `
CREATE TABLE IF NOT EXISTS entities (
    entity_id      TEXT PRIMARY KEY,
    project_id     TEXT NOT NULL,
    file_path      TEXT NOT NULL,
    content_hash   TEXT NOT NULL,
    function_count INTEGER NOT NULL DEFAULT 0,
    updated_at     TEXT NOT NULL,
    UNIQUE (project_id, file_path)
)`

const createFunctionsTable = `
CREATE TABLE IF NOT EXISTS functions (
    function_id TEXT PRIMARY KEY,
    project_id  TEXT NOT NULL,
    file_path   TEXT NOT NULL,
    name        TEXT NOT NULL,
    signature   TEXT NOT NULL,
    start_line  INTEGER NOT NULL,
    end_line    INTEGER NOT NULL,
    UNIQUE (project_id, file_path, name)
)`

// Edges deliberately carry no foreign keys: the store accepts dangling
// references, which is why the pipeline enforces entities-before-edges.
const createEdgesTable = `
CREATE TABLE IF NOT EXISTS edges (
    edge_id    TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    relation   TEXT NOT NULL,
    UNIQUE (project_id, from_id, to_id, relation)
)`

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_entities_project ON entities (project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_functions_file ON functions (project_id, file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_project ON edges (project_id)`,
}

// CreateSchema creates all tables and indexes for the SQLite graph store.
// All schema creation succeeds or fails together.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"entities", createEntitiesTable},
		{"functions", createFunctionsTable},
		{"edges", createEdgesTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", table.name, err)
		}
	}

	for i, idx := range schemaIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("create index %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}
