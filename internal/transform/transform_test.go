package transform

import (
	"strings"
	"testing"

	"akb/internal/extract"
)

func TestVarDefToEntry(t *testing.T) {
	t.Run("function with arglists", func(t *testing.T) {
		def := extract.VarDefinition{
			Namespace: "my.app.core",
			Name:      "handler",
			File:      "file:///src/core.clj",
			Row:       42,
			Arglists:  []string{"[req]", "[req opts]"},
		}
		entry := VarDefToEntry(def)

		if entry.Key != "ns:my.app.core/handler" {
			t.Errorf("unexpected key %q", entry.Key)
		}
		if !strings.Contains(entry.Content, "(defn handler [req])") {
			t.Errorf("expected first-arglist signature, got %q", entry.Content)
		}
		if !strings.Contains(entry.Content, "Location: file:///src/core.clj:42") {
			t.Errorf("expected location line, got %q", entry.Content)
		}
		if entry.Kind != "snippet" {
			t.Errorf("expected snippet kind, got %q", entry.Kind)
		}
		wantTags := []string{"lsp", "function-def", "ns:my.app.core"}
		if len(entry.Tags) != 3 {
			t.Fatalf("expected 3 tags, got %v", entry.Tags)
		}
		for i, tag := range wantTags {
			if entry.Tags[i] != tag {
				t.Errorf("tag %d: expected %q, got %q", i, tag, entry.Tags[i])
			}
		}
	})

	t.Run("plain def without arglists", func(t *testing.T) {
		def := extract.VarDefinition{
			Namespace: "my.app.core",
			Name:      "config",
			File:      "file:///src/core.clj",
			Row:       3,
			Arglists:  []string{},
		}
		entry := VarDefToEntry(def)
		if !strings.Contains(entry.Content, "(def config)") {
			t.Errorf("expected def form, got %q", entry.Content)
		}
	})
}

func TestNamespaceToEntry(t *testing.T) {
	node := extract.NamespaceNode{
		Namespace: "my.app.core",
		DependsOn: []string{"my.app.db", "my.app.auth"},
	}
	allDefs := []extract.VarDefinition{
		{Namespace: "my.app.core", Name: "handler"},
		{Namespace: "my.app.core", Name: "secret", Private: true},
		{Namespace: "my.app.core", Name: "run"},
		{Namespace: "my.app.db", Name: "query"},
	}

	entry := NamespaceToEntry(node, allDefs)
	if entry.Key != "ns:my.app.core" {
		t.Errorf("unexpected key %q", entry.Key)
	}
	if !strings.Contains(entry.Content, "Namespace: my.app.core") {
		t.Errorf("expected namespace name, got %q", entry.Content)
	}
	if !strings.Contains(entry.Content, "my.app.auth, my.app.db") {
		t.Errorf("expected sorted dependency list, got %q", entry.Content)
	}
	if !strings.Contains(entry.Content, "Public vars: 2") {
		t.Errorf("expected public var count excluding private and other namespaces, got %q", entry.Content)
	}
	if entry.Tags[1] != "namespace" {
		t.Errorf("expected namespace tag, got %v", entry.Tags)
	}
}

func TestCallEdgeToGraphEdge(t *testing.T) {
	call := extract.CallEdge{
		CallerNamespace: "my.app.core",
		CallerName:      "handler",
		CalleeNamespace: "my.app.db",
		CalleeName:      "query",
	}
	edge := CallEdgeToGraphEdge(call, "akb-analysis")

	if edge.FromKey != "ns:my.app.core/handler" || edge.ToKey != "ns:my.app.db/query" {
		t.Errorf("unexpected keys %q -> %q", edge.FromKey, edge.ToKey)
	}
	if edge.Relation != RelationDependsOn {
		t.Errorf("expected depends-on, got %q", edge.Relation)
	}
	if edge.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", edge.Confidence)
	}
	if edge.SourceType != SourceAutomated {
		t.Errorf("expected automated source, got %q", edge.SourceType)
	}
	if edge.CreatedBy != "akb-analysis" {
		t.Errorf("expected producer tag, got %q", edge.CreatedBy)
	}
}

func TestNsDepToGraphEdge(t *testing.T) {
	edge := NsDepToGraphEdge("my.app.core", "my.app.db", "akb-analysis")
	if edge.FromKey != "ns:my.app.core" || edge.ToKey != "ns:my.app.db" {
		t.Errorf("unexpected keys %q -> %q", edge.FromKey, edge.ToKey)
	}
	if edge.Relation != RelationDependsOn {
		t.Errorf("expected depends-on, got %q", edge.Relation)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		definedBy string
		want      DefKind
	}{
		{"clojure.core/defmulti", DefDispatcher},
		{"defmulti", DefDispatcher},
		{"clojure.core/defmethod", DefDispatchImpl},
		{"defmethod", DefDispatchImpl},
		{"clojure.core/defn", DefPlain},
		{"", DefPlain},
	}
	for _, tc := range cases {
		if got := KindOf(tc.definedBy); got != tc.want {
			t.Errorf("KindOf(%q) = %v, want %v", tc.definedBy, got, tc.want)
		}
	}
}

func TestImplementsEdges(t *testing.T) {
	t.Run("cross-namespace dispatcher produces one edge", func(t *testing.T) {
		defs := []extract.VarDefinition{
			{Namespace: "my.app.protocols", Name: "render", DefinedBy: "clojure.core/defmulti"},
			{Namespace: "my.app.html", Name: "render", DefinedBy: "clojure.core/defmethod"},
		}
		edges := ImplementsEdges(defs, "akb-analysis")
		if len(edges) != 1 {
			t.Fatalf("expected 1 implements edge, got %d", len(edges))
		}
		if edges[0].FromKey != "ns:my.app.html/render" {
			t.Errorf("from-key should be the defmethod, got %q", edges[0].FromKey)
		}
		if edges[0].ToKey != "ns:my.app.protocols/render" {
			t.Errorf("to-key should be the defmulti, got %q", edges[0].ToKey)
		}
		if edges[0].Relation != RelationImplements {
			t.Errorf("expected implements relation, got %q", edges[0].Relation)
		}
	})

	t.Run("same-namespace self-edge is suppressed", func(t *testing.T) {
		defs := []extract.VarDefinition{
			{Namespace: "my.app.core", Name: "convert", DefinedBy: "clojure.core/defmulti"},
			{Namespace: "my.app.core", Name: "convert", DefinedBy: "clojure.core/defmethod"},
		}
		edges := ImplementsEdges(defs, "akb-analysis")
		if len(edges) != 0 {
			t.Fatalf("expected zero implements edges, got %v", edges)
		}
	})

	t.Run("different namespace preferred over same", func(t *testing.T) {
		defs := []extract.VarDefinition{
			{Namespace: "my.app.core", Name: "convert", DefinedBy: "clojure.core/defmulti"},
			{Namespace: "my.app.protocols", Name: "convert", DefinedBy: "clojure.core/defmulti"},
			{Namespace: "my.app.core", Name: "convert", DefinedBy: "clojure.core/defmethod"},
		}
		edges := ImplementsEdges(defs, "akb-analysis")
		if len(edges) != 1 {
			t.Fatalf("expected 1 edge, got %d", len(edges))
		}
		if edges[0].ToKey != "ns:my.app.protocols/convert" {
			t.Errorf("cross-namespace dispatcher should win, got %q", edges[0].ToKey)
		}
	})

	t.Run("no dispatcher means no edge", func(t *testing.T) {
		defs := []extract.VarDefinition{
			{Namespace: "my.app.core", Name: "orphan", DefinedBy: "clojure.core/defmethod"},
		}
		if edges := ImplementsEdges(defs, "akb-analysis"); len(edges) != 0 {
			t.Errorf("expected no edges without a dispatcher, got %v", edges)
		}
	})
}

func TestAnalysisToGraphOperations(t *testing.T) {
	defs := []extract.VarDefinition{
		{Namespace: "my.app.core", Name: "handler", Arglists: []string{"[req]"}, File: "file:///src/core.clj", Row: 10},
		{Namespace: "my.app.core", Name: "helper", Private: true, File: "file:///src/core.clj", Row: 20},
		{Namespace: "my.app.db", Name: "query", Arglists: []string{"[sql]"}, File: "file:///src/db.clj", Row: 5},
	}
	calls := []extract.CallEdge{
		{CallerNamespace: "my.app.core", CallerName: "handler", CalleeNamespace: "my.app.db", CalleeName: "query"},
	}
	nsGraph := []extract.NamespaceNode{
		{Namespace: "my.app.core", DependsOn: []string{"my.app.db"}},
		{Namespace: "my.app.db", DependsOn: []string{}},
	}

	ops := AnalysisToGraphOperations("demo", defs, calls, nsGraph)

	// 2 public function entries + 2 namespace entries
	if len(ops.MemoryEntries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(ops.MemoryEntries))
	}
	// Private definitions get no entry
	for _, entry := range ops.MemoryEntries {
		if strings.Contains(entry.Key, "helper") {
			t.Error("private definition should not produce an entry")
		}
	}

	// 1 call edge + 1 namespace dependency edge
	if len(ops.GraphEdges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(ops.GraphEdges))
	}

	if ops.Stats.Fns != 2 || ops.Stats.Namespaces != 2 || ops.Stats.Edges != 2 {
		t.Errorf("unexpected stats %+v", ops.Stats)
	}

	// Deterministic order: definitions first, then namespaces
	if ops.MemoryEntries[0].Key != "ns:my.app.core/handler" {
		t.Errorf("expected definition-order entries, got %q first", ops.MemoryEntries[0].Key)
	}
	if ops.MemoryEntries[2].Key != "ns:my.app.core" {
		t.Errorf("expected namespace entries after functions, got %q", ops.MemoryEntries[2].Key)
	}

	// Function-level edge endpoints resolve to emitted entry keys
	keys := map[string]bool{}
	for _, e := range ops.MemoryEntries {
		keys[e.Key] = true
	}
	for _, edge := range ops.GraphEdges {
		if strings.Contains(edge.FromKey, "/") && !keys[edge.FromKey] {
			t.Errorf("function-level from-key %q has no entry", edge.FromKey)
		}
		if strings.Contains(edge.ToKey, "/") && !keys[edge.ToKey] {
			t.Errorf("function-level to-key %q has no entry", edge.ToKey)
		}
	}
}

func TestAnalysisToGraphOperationsKeyUniqueness(t *testing.T) {
	defs := []extract.VarDefinition{
		{Namespace: "a", Name: "x"},
		{Namespace: "a", Name: "y"},
		{Namespace: "b", Name: "x"},
	}
	nsGraph := []extract.NamespaceNode{
		{Namespace: "a"}, {Namespace: "b"},
	}

	ops := AnalysisToGraphOperations("demo", defs, nil, nsGraph)

	seen := map[string]bool{}
	for _, entry := range ops.MemoryEntries {
		if seen[entry.Key] {
			t.Errorf("duplicate key %q", entry.Key)
		}
		seen[entry.Key] = true
	}
	if len(ops.MemoryEntries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(ops.MemoryEntries))
	}
}

func TestAnalysisToGraphOperationsImplements(t *testing.T) {
	defs := []extract.VarDefinition{
		{Namespace: "my.app.protocols", Name: "render", DefinedBy: "clojure.core/defmulti"},
		{Namespace: "my.app.html", Name: "render", DefinedBy: "clojure.core/defmethod"},
	}

	ops := AnalysisToGraphOperations("demo", defs, nil, nil)

	found := false
	for _, edge := range ops.GraphEdges {
		if edge.Relation == RelationImplements {
			found = true
			if edge.FromKey != "ns:my.app.html/render" || edge.ToKey != "ns:my.app.protocols/render" {
				t.Errorf("unexpected implements edge %q -> %q", edge.FromKey, edge.ToKey)
			}
		}
	}
	if !found {
		t.Error("expected an implements edge in aggregated output")
	}
}

func TestAnalysisToGraphOperationsEmptyInputs(t *testing.T) {
	ops := AnalysisToGraphOperations("demo", nil, nil, nil)
	if len(ops.MemoryEntries) != 0 || len(ops.GraphEdges) != 0 {
		t.Error("empty inputs should produce empty operations")
	}
	if ops.Stats.Fns != 0 || ops.Stats.Edges != 0 || ops.Stats.Namespaces != 0 {
		t.Errorf("expected zero stats, got %+v", ops.Stats)
	}
}
