// Package analysis resolves a project's raw analysis snapshot: disk cache
// first, external analyzer fallback, with a single-slot memoizer in front.
package analysis

import (
	"context"
	"strings"

	"akb/internal/cache"
	"akb/internal/errors"
	"akb/internal/logging"
	"akb/internal/paths"
	"akb/internal/snapshot"
)

// Result is the outcome of an analysis request. Exactly one of Snapshot and
// Err is set; AnalyzeProject never raises.
type Result struct {
	Snapshot *snapshot.Snapshot
	Err      string
}

// Failed reports whether the result is an error map.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Analyzer invokes the external source-analysis engine. Implementations run
// synchronously and only the analysis and dep-graph facets are requested,
// scoped to the project itself.
type Analyzer interface {
	// Available reports whether the analyzer can be invoked at all in the
	// current runtime.
	Available() bool
	// Analyze runs the analyzer against a project root.
	Analyze(ctx context.Context, projectRoot string) (*snapshot.Snapshot, error)
}

// Source resolves raw analysis data for a project.
type Source struct {
	cache    *cache.Reader
	analyzer Analyzer // may be nil
	logger   *logging.Logger
}

// NewSource creates an analysis source. analyzer may be nil, in which case
// cache misses degrade to error results.
func NewSource(cacheReader *cache.Reader, analyzer Analyzer, logger *logging.Logger) *Source {
	return &Source{
		cache:    cacheReader,
		analyzer: analyzer,
		logger:   logger,
	}
}

// Cache returns the underlying disk cache reader.
func (s *Source) Cache() *cache.Reader {
	return s.cache
}

// AnalyzeProject resolves the snapshot for a project root. Total over all
// string inputs: blank or unresolvable input yields an error result, never
// a panic or Go error.
func (s *Source) AnalyzeProject(ctx context.Context, projectRoot string) Result {
	if strings.TrimSpace(projectRoot) == "" {
		return Result{Err: "project_root is blank: a non-empty project root path is required"}
	}

	projectID := paths.ProjectID(projectRoot)
	if projectID == "" {
		return Result{Err: "project_root has no final path segment: cannot derive a project id"}
	}

	if snap := s.cache.ReadAnalysis(projectID, cache.ReadOptions{}); snap != nil {
		s.logger.Debug("Analysis served from disk cache", map[string]interface{}{
			"project": projectID,
		})
		return Result{Snapshot: snap}
	}

	if s.analyzer == nil || !s.analyzer.Available() {
		return Result{Err: errors.NewAnalyzerUnavailableError(projectID, nil).Message}
	}

	s.logger.Info("Cache miss, invoking external analyzer", map[string]interface{}{
		"project": projectID,
	})
	snap, err := s.analyzer.Analyze(ctx, projectRoot)
	if err != nil {
		return Result{Err: errors.NewAnalyzerUnavailableError(projectID, err).Error()}
	}
	return Result{Snapshot: snap}
}
