// Package extract normalizes raw per-file analysis buckets into the three
// canonical relations: var definitions, call graph, namespace graph. All
// functions are pure, perform no I/O, and never fail: malformed or missing
// buckets default to empty collections.
//
// Go map iteration order is randomized, so input maps are iterated in
// sorted key order; output order is therefore deterministic across runs.
package extract

import (
	"sort"
	"strings"

	"akb/internal/snapshot"
)

// VarDefinition is a normalized symbol definition. Uniquely identified for
// graph purposes by (Namespace, Name).
type VarDefinition struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Row       int      `json:"row"`
	Col       int      `json:"col"`
	Arglists  []string `json:"arglists"`
	Private   bool     `json:"private"`
	Macro     bool     `json:"macro"`
	DefinedBy string   `json:"defined-by"`
}

// CallEdge is one caller→callee relationship inside a named definition.
type CallEdge struct {
	CallerNamespace string `json:"caller-namespace"`
	CallerName      string `json:"caller-name"`
	CalleeNamespace string `json:"callee-namespace"`
	CalleeName      string `json:"callee-name"`
	File            string `json:"file"`
	Row             int    `json:"row"`
}

// NamespaceNode is one namespace with its dependency sets (counts dropped).
type NamespaceNode struct {
	Namespace  string   `json:"namespace"`
	DependsOn  []string `json:"depends-on"`
	Dependents []string `json:"dependents"`
	Internal   bool     `json:"internal"`
}

// isProjectFile keeps file://-scheme URIs and drops jar:// entries, which
// denote symbols inside external dependency archives.
func isProjectFile(uri string) bool {
	return strings.HasPrefix(uri, "file://")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// VarDefinitions flattens the var-definitions buckets of all project files.
func VarDefinitions(analysis map[string]snapshot.FileBucket) []VarDefinition {
	defs := []VarDefinition{}
	for _, uri := range sortedKeys(analysis) {
		if !isProjectFile(uri) {
			continue
		}
		for _, raw := range analysis[uri].VarDefinitions {
			arglists := raw.ArglistStrs
			if arglists == nil {
				arglists = []string{}
			}
			file := raw.Filename
			if file == "" {
				file = uri
			}
			defs = append(defs, VarDefinition{
				Namespace: raw.Ns,
				Name:      raw.Name,
				File:      file,
				Row:       raw.Row,
				Col:       raw.Col,
				Arglists:  arglists,
				Private:   raw.Private,
				Macro:     raw.Macro,
				DefinedBy: raw.DefinedBy,
			})
		}
	}
	return defs
}

// CallGraph flattens the var-usages buckets of all project files, keeping
// only usages that occur inside a named definition (non-empty from-var);
// top-level reader forms are excluded.
func CallGraph(analysis map[string]snapshot.FileBucket) []CallEdge {
	edges := []CallEdge{}
	for _, uri := range sortedKeys(analysis) {
		if !isProjectFile(uri) {
			continue
		}
		for _, raw := range analysis[uri].VarUsages {
			if raw.FromVar == "" {
				continue
			}
			file := raw.Filename
			if file == "" {
				file = uri
			}
			edges = append(edges, CallEdge{
				CallerNamespace: raw.From,
				CallerName:      raw.FromVar,
				CalleeNamespace: raw.To,
				CalleeName:      raw.Name,
				File:            file,
				Row:             raw.Row,
			})
		}
	}
	return edges
}

// NamespaceGraph converts the dependency graph's count maps into sorted
// namespace sets.
func NamespaceGraph(depGraph map[string]snapshot.DepEntry) []NamespaceNode {
	nodes := []NamespaceNode{}
	for _, ns := range sortedKeys(depGraph) {
		entry := depGraph[ns]
		nodes = append(nodes, NamespaceNode{
			Namespace:  ns,
			DependsOn:  sortedKeys(entry.Dependencies),
			Dependents: sortedKeys(entry.Dependents),
			Internal:   entry.Internal,
		})
	}
	return nodes
}
