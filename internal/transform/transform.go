// Package transform converts the canonical relations into graph-store
// operations: memory entries (nodes keyed by stable string identifiers) and
// graph edges with relation kinds. Everything here is pure and
// deterministic given its inputs' order.
package transform

import (
	"fmt"
	"sort"
	"strings"

	"akb/internal/extract"
)

const (
	// RelationDependsOn marks call edges and namespace dependency edges.
	RelationDependsOn = "depends-on"
	// RelationImplements marks resolved dispatcher-implementation edges.
	RelationImplements = "implements"

	// SourceAutomated marks machine-derived edges.
	SourceAutomated = "automated"

	// EntryKind is the memory-entry kind for all analysis-derived nodes.
	EntryKind = "snippet"
	// EntryDurationHint suggests retention to the memory store.
	EntryDurationHint = "long-term"

	// DefaultCreatedBy is the producer tag stamped on generated edges.
	DefaultCreatedBy = "akb-analysis"
)

// MemoryEntry is a node destined for the knowledge-graph/memory store. Key
// is the stable identifier used to resolve edges before the store assigns
// its own ids.
type MemoryEntry struct {
	Kind         string   `json:"kind"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	DurationHint string   `json:"duration-hint"`
	Key          string   `json:"key"`
}

// GraphEdge is a typed relation between two memory entries, referenced by
// their stable keys until sync time.
type GraphEdge struct {
	FromKey    string  `json:"from-key"`
	ToKey      string  `json:"to-key"`
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
	SourceType string  `json:"source-type"`
	CreatedBy  string  `json:"created-by"`
}

// Stats summarizes one transformation pass.
type Stats struct {
	Fns        int `json:"fns"`
	Edges      int `json:"edges"`
	Namespaces int `json:"namespaces"`
}

// Operations is the output of one transformation pass.
type Operations struct {
	MemoryEntries []MemoryEntry `json:"memory-entries"`
	GraphEdges    []GraphEdge   `json:"graph-edges"`
	Stats         Stats         `json:"stats"`
}

// FunctionKey builds the stable key for a function-level entry.
func FunctionKey(namespace, name string) string {
	return fmt.Sprintf("ns:%s/%s", namespace, name)
}

// NamespaceKey builds the stable key for a namespace-level entry.
func NamespaceKey(namespace string) string {
	return fmt.Sprintf("ns:%s", namespace)
}

// DefKind classifies a definition's defining construct. The defined-by
// qualifier is an opaque string; only the multi-method dispatch suffixes are
// recognized.
type DefKind int

const (
	// DefPlain is any ordinary definition.
	DefPlain DefKind = iota
	// DefDispatcher is a multi-method dispatcher definition (defmulti).
	DefDispatcher
	// DefDispatchImpl is a multi-method implementation (defmethod).
	DefDispatchImpl
)

// KindOf recognizes the defining construct from the defined-by qualifier.
func KindOf(definedBy string) DefKind {
	switch {
	case definedBy == "defmulti" || strings.HasSuffix(definedBy, "/defmulti"):
		return DefDispatcher
	case definedBy == "defmethod" || strings.HasSuffix(definedBy, "/defmethod"):
		return DefDispatchImpl
	default:
		return DefPlain
	}
}

// VarDefToEntry renders one definition as a memory entry: a one-line
// signature plus its location.
func VarDefToEntry(def extract.VarDefinition) MemoryEntry {
	var signature string
	if len(def.Arglists) > 0 {
		signature = fmt.Sprintf("(defn %s %s)", def.Name, def.Arglists[0])
	} else {
		signature = fmt.Sprintf("(def %s)", def.Name)
	}
	content := fmt.Sprintf("%s\nLocation: %s:%d", signature, def.File, def.Row)

	return MemoryEntry{
		Kind:         EntryKind,
		Content:      content,
		Tags:         []string{"lsp", "function-def", NamespaceKey(def.Namespace)},
		DurationHint: EntryDurationHint,
		Key:          FunctionKey(def.Namespace, def.Name),
	}
}

// NamespaceToEntry renders one namespace node as a memory entry listing its
// sorted dependencies and its public var count (matched against allDefs).
func NamespaceToEntry(node extract.NamespaceNode, allDefs []extract.VarDefinition) MemoryEntry {
	deps := append([]string{}, node.DependsOn...)
	sort.Strings(deps)

	publicVars := 0
	for _, def := range allDefs {
		if def.Namespace == node.Namespace && !def.Private {
			publicVars++
		}
	}

	content := fmt.Sprintf("Namespace: %s\nDependencies: %s\nPublic vars: %d",
		node.Namespace, strings.Join(deps, ", "), publicVars)

	return MemoryEntry{
		Kind:         EntryKind,
		Content:      content,
		Tags:         []string{"lsp", "namespace", NamespaceKey(node.Namespace)},
		DurationHint: EntryDurationHint,
		Key:          NamespaceKey(node.Namespace),
	}
}

// CallEdgeToGraphEdge converts one call edge to a depends-on graph edge.
func CallEdgeToGraphEdge(call extract.CallEdge, createdBy string) GraphEdge {
	return GraphEdge{
		FromKey:    FunctionKey(call.CallerNamespace, call.CallerName),
		ToKey:      FunctionKey(call.CalleeNamespace, call.CalleeName),
		Relation:   RelationDependsOn,
		Confidence: 1.0,
		SourceType: SourceAutomated,
		CreatedBy:  createdBy,
	}
}

// NsDepToGraphEdge converts one namespace dependency to a depends-on edge.
func NsDepToGraphEdge(fromNs, toNs, createdBy string) GraphEdge {
	return GraphEdge{
		FromKey:    NamespaceKey(fromNs),
		ToKey:      NamespaceKey(toNs),
		Relation:   RelationDependsOn,
		Confidence: 1.0,
		SourceType: SourceAutomated,
		CreatedBy:  createdBy,
	}
}

// ImplementsEdges resolves defmethod→defmulti edges. For each dispatcher
// implementation, candidate dispatchers sharing its name are considered; a
// dispatcher in a different namespace wins over one in the same namespace.
// A same-namespace-only match produces identical from/to keys and is
// suppressed as a self-edge. When several differently-namespaced
// dispatchers share the name, the first candidate in definition order wins;
// no canonical tie-break exists.
func ImplementsEdges(defs []extract.VarDefinition, createdBy string) []GraphEdge {
	dispatchers := map[string][]extract.VarDefinition{}
	for _, def := range defs {
		if KindOf(def.DefinedBy) == DefDispatcher {
			dispatchers[def.Name] = append(dispatchers[def.Name], def)
		}
	}

	edges := []GraphEdge{}
	for _, def := range defs {
		if KindOf(def.DefinedBy) != DefDispatchImpl {
			continue
		}

		candidates := dispatchers[def.Name]
		if len(candidates) == 0 {
			continue
		}

		target := candidates[0]
		for _, c := range candidates {
			if c.Namespace != def.Namespace {
				target = c
				break
			}
		}

		fromKey := FunctionKey(def.Namespace, def.Name)
		toKey := FunctionKey(target.Namespace, target.Name)
		if fromKey == toKey {
			// Same-namespace dispatcher: self-edge, suppressed
			continue
		}

		edges = append(edges, GraphEdge{
			FromKey:    fromKey,
			ToKey:      toKey,
			Relation:   RelationImplements,
			Confidence: 1.0,
			SourceType: SourceAutomated,
			CreatedBy:  createdBy,
		})
	}
	return edges
}

// AnalysisToGraphOperations builds the complete operation set for one
// project: one entry per non-private definition, one entry per namespace,
// depends-on edges for calls and namespace dependencies, plus resolved
// implements edges. Entry keys are guaranteed unique within the pass.
func AnalysisToGraphOperations(projectID string, defs []extract.VarDefinition, calls []extract.CallEdge, nsGraph []extract.NamespaceNode) Operations {
	_ = projectID // scope tagging happens at sync time

	entries := []MemoryEntry{}
	seen := map[string]bool{}

	fns := 0
	for _, def := range defs {
		if def.Private {
			continue
		}
		entry := VarDefToEntry(def)
		if seen[entry.Key] {
			continue
		}
		seen[entry.Key] = true
		entries = append(entries, entry)
		fns++
	}

	namespaces := 0
	for _, node := range nsGraph {
		entry := NamespaceToEntry(node, defs)
		if seen[entry.Key] {
			continue
		}
		seen[entry.Key] = true
		entries = append(entries, entry)
		namespaces++
	}

	edges := []GraphEdge{}
	for _, call := range calls {
		edges = append(edges, CallEdgeToGraphEdge(call, DefaultCreatedBy))
	}
	for _, node := range nsGraph {
		deps := append([]string{}, node.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			edges = append(edges, NsDepToGraphEdge(node.Namespace, dep, DefaultCreatedBy))
		}
	}
	edges = append(edges, ImplementsEdges(defs, DefaultCreatedBy)...)

	return Operations{
		MemoryEntries: entries,
		GraphEdges:    edges,
		Stats: Stats{
			Fns:        fns,
			Edges:      len(edges),
			Namespaces: namespaces,
		},
	}
}
