// Package graphsync forwards transformer output to an external
// knowledge-graph/memory store, best-effort. Store operations are injected
// as individually-nullable capabilities; absence of any one degrades that
// step without raising.
package graphsync

import (
	"context"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"akb/internal/logging"
	"akb/internal/transform"
)

// Capabilities are the external store operations the bridge can use. Any
// field may be nil.
type Capabilities struct {
	// Index stores one entry and returns the store-assigned identifier.
	Index func(ctx context.Context, entry transform.MemoryEntry, tags []string) (string, error)
	// FindDuplicate looks up an existing entry by (kind, content hash,
	// project scope) and returns its identifier.
	FindDuplicate func(ctx context.Context, kind, hash, scope string) (string, bool, error)
	// AddEdge links two store-assigned identifiers.
	AddEdge func(ctx context.Context, fromID, toID string, edge transform.GraphEdge) error
	// ContentHash hashes entry content for deduplication.
	ContentHash func(content string) string
	// InjectScope adds a project-scope tag to an entry's tags.
	InjectScope func(tags []string, scope string) []string
}

// HashContent is the default content-hash capability: hex-encoded
// BLAKE2b-256 of the entry content.
func HashContent(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ScopeTag is the default scope-injection capability.
func ScopeTag(tags []string, scope string) []string {
	return append(append([]string{}, tags...), "project:"+scope)
}

// Stats is the outcome of one sync pass.
type Stats struct {
	Created int      `json:"created"`
	Edges   int      `json:"edges"`
	Errors  []string `json:"errors"`
}

// Bridge syncs graph operations into the external store.
type Bridge struct {
	caps   Capabilities
	logger *logging.Logger
}

// NewBridge creates a sync bridge over the given capabilities.
func NewBridge(caps Capabilities, logger *logging.Logger) *Bridge {
	return &Bridge{caps: caps, logger: logger}
}

// Available reports whether both the indexing and edge-adding capabilities
// resolve in the current runtime.
func (b *Bridge) Available() bool {
	return b.caps.Index != nil && b.caps.AddEdge != nil
}

// Sync pushes operations to the store in two best-effort phases: entries
// first (building the key→id map), then edges resolved through that map.
// Edges with an unresolved endpoint are skipped silently; per-item failures
// are collected, never raised, and nothing is retried.
func (b *Bridge) Sync(ctx context.Context, projectID string, ops transform.Operations, scope string) Stats {
	stats := Stats{Errors: []string{}}

	if b.caps.Index == nil {
		// No indexing capability at all: skip every entry, not an error.
		b.logger.Debug("Graph store indexing unavailable, skipping sync", map[string]interface{}{
			"project": projectID,
		})
		return stats
	}

	idByKey := make(map[string]string, len(ops.MemoryEntries))

	for _, entry := range ops.MemoryEntries {
		var hash string
		if b.caps.ContentHash != nil {
			hash = b.caps.ContentHash(entry.Content)
		}

		if b.caps.FindDuplicate != nil && hash != "" {
			if id, found, err := b.caps.FindDuplicate(ctx, entry.Kind, hash, scope); err == nil && found {
				idByKey[entry.Key] = id
				continue
			}
		}

		tags := entry.Tags
		if b.caps.InjectScope != nil && scope != "" {
			tags = b.caps.InjectScope(tags, scope)
		}

		id, err := b.caps.Index(ctx, entry, tags)
		if err != nil || id == "" {
			stats.Errors = append(stats.Errors, fmt.Sprintf("Failed entry: %s", entry.Key))
			continue
		}
		idByKey[entry.Key] = id
	}

	stats.Created = len(idByKey)

	if b.caps.AddEdge == nil {
		return stats
	}

	for _, edge := range ops.GraphEdges {
		fromID, fromOK := idByKey[edge.FromKey]
		toID, toOK := idByKey[edge.ToKey]
		if !fromOK || !toOK {
			// Expected: edges may reference entries that were never created
			b.logger.Debug("Skipping edge with unresolved endpoint", map[string]interface{}{
				"from": edge.FromKey,
				"to":   edge.ToKey,
			})
			continue
		}

		if err := b.caps.AddEdge(ctx, fromID, toID, edge); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("Failed edge: %s -> %s", edge.FromKey, edge.ToKey))
			continue
		}
		stats.Edges++
	}

	return stats
}
