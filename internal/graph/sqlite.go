package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a Client backed by a local SQLite database. Entities and
// functions upsert with INSERT OR REPLACE; edges insert with OR IGNORE so
// recreating them is idempotent.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite graph store at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create graph schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing database connection. The schema must
// already exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck reports whether the database accepts connections.
func (s *SQLiteStore) HealthCheck(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// UpsertEntities writes file entities and their function inventories in
// chunks of batchSize. Each chunk is one transaction; a failed chunk marks
// all of its entities failed without aborting the remaining chunks.
func (s *SQLiteStore) UpsertEntities(ctx context.Context, entities []Entity, batchSize int) (*BatchResult, error) {
	result := &BatchResult{}

	for _, chunk := range chunkEntities(entities, batchSize) {
		if err := s.upsertChunk(ctx, chunk); err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors, err)
			continue
		}
		for _, entity := range chunk {
			result.Succeeded = append(result.Succeeded, entity.Path)
		}
	}

	return result, nil
}

func (s *SQLiteStore) upsertChunk(ctx context.Context, chunk []Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, entity := range chunk {
		_, err := sq.Insert("entities").
			Columns("entity_id", "project_id", "file_path", "content_hash", "function_count", "updated_at").
			Values(entity.ID(), entity.ProjectID, entity.Path, entity.Hash, len(entity.Functions), now).
			Options("OR REPLACE").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("upsert entity %s: %w", entity.ID(), err)
		}

		// Replace the function inventory wholesale; the delta already
		// decided this file changed.
		_, err = tx.ExecContext(ctx,
			"DELETE FROM functions WHERE project_id = ? AND file_path = ?",
			entity.ProjectID, entity.Path)
		if err != nil {
			return fmt.Errorf("clear functions for %s: %w", entity.Path, err)
		}

		for _, fn := range entity.Functions {
			functionID := fmt.Sprintf("%s::%s", entity.ID(), fn.Name)
			_, err := sq.Insert("functions").
				Columns("function_id", "project_id", "file_path", "name", "signature", "start_line", "end_line").
				Values(functionID, entity.ProjectID, entity.Path, fn.Name, fn.Signature, fn.StartLine, fn.EndLine).
				Options("OR REPLACE").
				RunWith(tx).
				ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("insert function %s: %w", functionID, err)
			}
		}
	}

	return tx.Commit()
}

// CreateContainmentEdges links the project node to each file entity.
func (s *SQLiteStore) CreateContainmentEdges(ctx context.Context, projectID string, paths []string, batchSize int) (*BatchResult, error) {
	result := &BatchResult{}

	for _, chunk := range chunkStrings(paths, batchSize) {
		if err := s.edgeChunk(ctx, projectID, chunk); err != nil {
			result.Failed += len(chunk)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, chunk...)
	}

	return result, nil
}

func (s *SQLiteStore) edgeChunk(ctx context.Context, projectID string, paths []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, path := range paths {
		_, err := sq.Insert("edges").
			Columns("edge_id", "project_id", "from_id", "to_id", "relation").
			Values(uuid.New().String(), projectID, projectID, EntityID(projectID, path), "contains").
			Options("OR IGNORE").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert edge for %s: %w", path, err)
		}
	}

	return tx.Commit()
}

// PruneDeletedFiles removes entities whose path is no longer active, along
// with their functions and containment edges.
func (s *SQLiteStore) PruneDeletedFiles(ctx context.Context, projectID string, activePaths []string) (int, error) {
	active := make(map[string]bool, len(activePaths))
	for _, path := range activePaths {
		active[path] = true
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT file_path FROM entities WHERE project_id = ?", projectID)
	if err != nil {
		return 0, fmt.Errorf("list entities: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan entity path: %w", err)
		}
		if !active[path] {
			stale = append(stale, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("list entities: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, path := range stale {
		entityID := EntityID(projectID, path)
		steps := []struct {
			query string
			args  []any
		}{
			{"DELETE FROM edges WHERE project_id = ? AND (from_id = ? OR to_id = ?)", []any{projectID, entityID, entityID}},
			{"DELETE FROM functions WHERE project_id = ? AND file_path = ?", []any{projectID, path}},
			{"DELETE FROM entities WHERE entity_id = ?", []any{entityID}},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
				return 0, fmt.Errorf("prune %s: %w", path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// DeleteFunctions removes the named functions of one file.
func (s *SQLiteStore) DeleteFunctions(ctx context.Context, projectID, path string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, 0, len(names)+2)
	args = append(args, projectID, path)
	for _, name := range names {
		args = append(args, name)
	}

	query := fmt.Sprintf(
		"DELETE FROM functions WHERE project_id = ? AND file_path = ? AND name IN (%s)",
		placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete functions for %s: %w", path, err)
	}
	return nil
}

// SyncFilesWithFunctions performs a bulk write, entities strictly before
// edges.
func (s *SQLiteStore) SyncFilesWithFunctions(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	return syncViaBatches(ctx, s, opts)
}
