package mcp

import (
	"context"
	stderrors "errors"
	"strings"

	"akb/internal/errors"
	"akb/internal/extract"
	"akb/internal/paths"
	"akb/internal/snapshot"
	"akb/internal/transform"
)

// registerTools wires every command name to its handler. Commands that read
// project data go through withProjectRoot, so parameter validation happens
// before any cache or analyzer access.
func (s *Server) registerTools() {
	s.tools = map[string]ToolHandler{
		"analyze":     s.withProjectRoot(s.handleAnalyze),
		"definitions": s.withProjectRoot(s.handleDefinitions),
		"calls":       s.withProjectRoot(s.handleCalls),
		"ns-graph":    s.withProjectRoot(s.handleNsGraph),
		"callers":     s.withProjectRoot(s.handleCallers),
		"references":  s.withProjectRoot(s.handleReferences),
		"sync":        s.withProjectRoot(s.handleSync),
		"status":      s.handleStatus,
		"invalidate":  s.handleInvalidate,
	}
}

func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// withProjectRoot rejects requests without a usable project_root before the
// wrapped handler runs.
func (s *Server) withProjectRoot(fn func(projectRoot string, params map[string]interface{}) (interface{}, error)) ToolHandler {
	return func(params map[string]interface{}) (interface{}, error) {
		root := stringParam(params, "project_root")
		if strings.TrimSpace(root) == "" {
			return nil, errors.NewInvalidParameterError("project_root", "a non-blank project root path is required")
		}
		return fn(root, params)
	}
}

// resolveSnapshot runs the memoized analysis pipeline and converts an error
// result into a handler error.
func (s *Server) resolveSnapshot(projectRoot string) (*snapshot.Snapshot, error) {
	result := s.memo.Analyze(context.Background(), projectRoot)
	if result.Failed() {
		return nil, stderrors.New(result.Err)
	}
	return result.Snapshot, nil
}

func (s *Server) handleAnalyze(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	numFiles := 0
	for uri := range snap.Analysis {
		if strings.HasPrefix(uri, "file://") {
			numFiles++
		}
	}

	projectID := paths.ProjectID(projectRoot)
	cacheStatus := "miss"
	if s.cache.CacheFresh(projectID, 0) {
		cacheStatus = "fresh"
	}

	return map[string]interface{}{
		"project-id":     projectID,
		"num-files":      numFiles,
		"num-namespaces": len(snap.DepGraph),
		"num-vars":       len(extract.VarDefinitions(snap.Analysis)),
		"cache-status":   cacheStatus,
	}, nil
}

func (s *Server) handleDefinitions(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	defs := extract.VarDefinitions(snap.Analysis)
	if ns := stringParam(params, "namespace"); ns != "" {
		filtered := []extract.VarDefinition{}
		for _, def := range defs {
			if def.Namespace == ns {
				filtered = append(filtered, def)
			}
		}
		defs = filtered
	}

	return map[string]interface{}{
		"definitions": defs,
		"count":       len(defs),
	}, nil
}

func (s *Server) handleCalls(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	ns := stringParam(params, "namespace")
	fn := stringParam(params, "function")
	edges := []extract.CallEdge{}
	for _, edge := range extract.CallGraph(snap.Analysis) {
		if ns != "" && edge.CallerNamespace != ns {
			continue
		}
		if fn != "" && edge.CallerName != fn {
			continue
		}
		edges = append(edges, edge)
	}

	return map[string]interface{}{
		"calls": edges,
		"count": len(edges),
	}, nil
}

func (s *Server) handleNsGraph(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	nodes := extract.NamespaceGraph(snap.DepGraph)
	return map[string]interface{}{
		"namespaces": nodes,
		"count":      len(nodes),
	}, nil
}

// calleeEdges returns call edges whose callee matches the namespace and
// function parameters. Both filters are exact matches when present.
func calleeEdges(snap *snapshot.Snapshot, ns, fn string) []extract.CallEdge {
	edges := []extract.CallEdge{}
	for _, edge := range extract.CallGraph(snap.Analysis) {
		if ns != "" && edge.CalleeNamespace != ns {
			continue
		}
		if fn != "" && edge.CalleeName != fn {
			continue
		}
		edges = append(edges, edge)
	}
	return edges
}

func (s *Server) handleCallers(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	edges := calleeEdges(snap, stringParam(params, "namespace"), stringParam(params, "function"))
	return map[string]interface{}{
		"callers": edges,
		"count":   len(edges),
	}, nil
}

func (s *Server) handleReferences(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	refs := []map[string]interface{}{}
	for _, edge := range calleeEdges(snap, stringParam(params, "namespace"), stringParam(params, "function")) {
		refs = append(refs, map[string]interface{}{
			"file":      edge.File,
			"row":       edge.Row,
			"caller-ns": edge.CallerNamespace,
			"caller-fn": edge.CallerName,
		})
	}

	return map[string]interface{}{
		"references": refs,
		"count":      len(refs),
	}, nil
}

func (s *Server) handleSync(projectRoot string, params map[string]interface{}) (interface{}, error) {
	snap, err := s.resolveSnapshot(projectRoot)
	if err != nil {
		return nil, err
	}

	projectID := stringParam(params, "project_id")
	if projectID == "" {
		projectID = paths.ProjectID(projectRoot)
	}
	scope := stringParam(params, "scope")
	if scope == "" {
		scope = s.syncScope
	}
	if scope == "" {
		scope = projectID
	}

	defs := extract.VarDefinitions(snap.Analysis)
	calls := extract.CallGraph(snap.Analysis)
	nsGraph := extract.NamespaceGraph(snap.DepGraph)
	ops := transform.AnalysisToGraphOperations(projectID, defs, calls, nsGraph)

	syncStats := s.bridge.Sync(context.Background(), projectID, ops, scope)
	return map[string]interface{}{
		"project-id":     projectID,
		"scope":          scope,
		"analysis-stats": ops.Stats,
		"sync-stats":     syncStats,
	}, nil
}

func (s *Server) handleStatus(params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"version":          s.version,
		"bridge-available": s.bridge.Available(),
		"cache":            s.cache.CacheStatus(),
	}, nil
}

func (s *Server) handleInvalidate(params map[string]interface{}) (interface{}, error) {
	s.memo.Invalidate()
	return map[string]interface{}{
		"invalidated": true,
	}, nil
}
