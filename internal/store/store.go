// Package store is the local knowledge-graph store backend: a sqlite
// database holding memory entries and graph edges. It supplies the sync
// bridge's capabilities when akb runs without an external store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"akb/internal/graphsync"
	"akb/internal/logging"
	"akb/internal/transform"
)

// Store is a sqlite-backed entry/edge store.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	content       TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	tags_json     TEXT NOT NULL,
	duration_hint TEXT NOT NULL DEFAULT '',
	key           TEXT NOT NULL,
	scope         TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_dedup ON entries (kind, content_hash, scope);
CREATE INDEX IF NOT EXISTS idx_entries_scope ON entries (scope);

CREATE TABLE IF NOT EXISTS edges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	from_id     TEXT NOT NULL,
	to_id       TEXT NOT NULL,
	relation    TEXT NOT NULL,
	confidence  REAL NOT NULL,
	source_type TEXT NOT NULL,
	created_by  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (from_id) REFERENCES entries(id),
	FOREIGN KEY (to_id) REFERENCES entries(id)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges (from_id);
`

// Open opens or creates the store database at path.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	logger.Debug("Store opened", map[string]interface{}{"path": path})
	return &Store{conn: conn, logger: logger, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// scopeFromTags recovers the project scope from an injected scope tag.
func scopeFromTags(tags []string) string {
	for _, tag := range tags {
		if strings.HasPrefix(tag, "project:") {
			return strings.TrimPrefix(tag, "project:")
		}
	}
	return ""
}

// IndexEntry stores one entry and returns its store-assigned identifier.
func (s *Store) IndexEntry(ctx context.Context, entry transform.MemoryEntry, tags []string) (string, error) {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}

	id := uuid.NewString()
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO entries (id, kind, content, content_hash, tags_json, duration_hint, key, scope, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, entry.Kind, entry.Content, graphsync.HashContent(entry.Content), string(tagsJSON),
		entry.DurationHint, entry.Key, scopeFromTags(tags), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to index entry %s: %w", entry.Key, err)
	}
	return id, nil
}

// FindDuplicate looks up an existing entry by (kind, content hash, scope).
func (s *Store) FindDuplicate(ctx context.Context, kind, hash, scope string) (string, bool, error) {
	var id string
	err := s.conn.QueryRowContext(ctx, `
		SELECT id FROM entries
		WHERE kind = ? AND content_hash = ? AND scope = ?
		LIMIT 1
	`, kind, hash, scope).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("duplicate lookup failed: %w", err)
	}
	return id, true, nil
}

// AddEdge links two stored entries.
func (s *Store) AddEdge(ctx context.Context, fromID, toID string, edge transform.GraphEdge) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO edges (from_id, to_id, relation, confidence, source_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fromID, toID, edge.Relation, edge.Confidence, edge.SourceType, edge.CreatedBy,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to add edge: %w", err)
	}
	return nil
}

// Prune removes all entries and edges belonging to a project scope. Used
// before a full re-sync.
func (s *Store) Prune(ctx context.Context, scope string) error {
	_, err := s.conn.ExecContext(ctx, `
		DELETE FROM edges WHERE from_id IN (SELECT id FROM entries WHERE scope = ?)
		   OR to_id IN (SELECT id FROM entries WHERE scope = ?)
	`, scope, scope)
	if err != nil {
		return fmt.Errorf("failed to prune edges: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM entries WHERE scope = ?", scope); err != nil {
		return fmt.Errorf("failed to prune entries: %w", err)
	}
	s.logger.Debug("Pruned project scope", map[string]interface{}{"scope": scope})
	return nil
}

// Counts returns entry and edge totals for status reporting.
func (s *Store) Counts(ctx context.Context) (entries int, edges int, err error) {
	if err = s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&entries); err != nil {
		return 0, 0, fmt.Errorf("failed to count entries: %w", err)
	}
	if err = s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return entries, edges, nil
}

// Capabilities exposes the store as sync-bridge capabilities, with the
// default hashing and scope-injection strategies.
func (s *Store) Capabilities() graphsync.Capabilities {
	return graphsync.Capabilities{
		Index:         s.IndexEntry,
		FindDuplicate: s.FindDuplicate,
		AddEdge:       s.AddEdge,
		ContentHash:   graphsync.HashContent,
		InjectScope:   graphsync.ScopeTag,
	}
}
