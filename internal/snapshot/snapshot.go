// Package snapshot defines the wire shapes produced by the external analyzer:
// the per-project analysis dump and its freshness metadata. These are the
// inputs of the whole pipeline and are never mutated after decoding.
package snapshot

import (
	"encoding/json"
	"io"
)

// StatusOK marks a metadata record for a successful analyzer run.
const StatusOK = "ok"

// Meta is the freshness metadata written next to each snapshot by the
// external producer. Read-only to akb.
type Meta struct {
	Timestamp  int64  `json:"timestamp"` // epoch seconds
	DurationMs int64  `json:"duration-ms"`
	ProjectID  string `json:"project-id"`
	Status     string `json:"status"` // "ok" or "error"
	ExitCode   *int   `json:"exit-code,omitempty"`
}

// OK reports whether the metadata describes a usable snapshot.
func (m *Meta) OK() bool {
	return m != nil && m.Status == StatusOK
}

// Definition is a raw var-definition record as emitted by the analyzer.
type Definition struct {
	Ns          string   `json:"ns"`
	Name        string   `json:"name"`
	Filename    string   `json:"filename"`
	Row         int      `json:"row"`
	Col         int      `json:"col"`
	ArglistStrs []string `json:"arglist-strs,omitempty"`
	Private     bool     `json:"private,omitempty"`
	Macro       bool     `json:"macro,omitempty"`
	DefinedBy   string   `json:"defined-by,omitempty"`
}

// Usage is a raw var-usage record. FromVar is empty for usages that occur
// outside any named definition (top-level forms).
type Usage struct {
	From     string `json:"from"`
	FromVar  string `json:"from-var,omitempty"`
	To       string `json:"to"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Row      int    `json:"row"`
}

// FileBucket holds the analysis records for one file URI.
type FileBucket struct {
	VarDefinitions []Definition `json:"var-definitions,omitempty"`
	VarUsages      []Usage      `json:"var-usages,omitempty"`
}

// DepEntry describes one namespace in the dependency graph. Map values are
// occurrence counts; the extractor discards them.
type DepEntry struct {
	Dependencies map[string]int `json:"dependencies,omitempty"`
	Dependents   map[string]int `json:"dependents,omitempty"`
	Internal     bool           `json:"internal,omitempty"`
}

// Snapshot is the complete raw analysis result for one project.
type Snapshot struct {
	Analysis map[string]FileBucket `json:"analysis,omitempty"`
	DepGraph map[string]DepEntry   `json:"dep-graph,omitempty"`
}

// Decode reads a snapshot payload from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DecodeMeta reads a metadata record from r.
func DecodeMeta(r io.Reader) (*Meta, error) {
	var meta Meta
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
