// Package cache implements the on-disk snapshot cache reader. Snapshots are
// produced by an external sidecar under <cache-dir>/<project-id>/ as a
// meta.json freshness record plus a dump.json (optionally gzip-compressed)
// payload. akb only ever reads this tree.
package cache

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"akb/internal/logging"
	"akb/internal/snapshot"
)

const (
	metaFile       = "meta.json"
	dumpFile       = "dump.json"
	dumpFileGz     = "dump.json.gz"
	// DefaultMaxAgeMs is the default staleness bound: 10 minutes.
	DefaultMaxAgeMs int64 = 600_000
	// DefaultClockSkewToleranceMs bounds how far ahead of our clock a
	// producer-written timestamp may sit before the snapshot is discarded.
	DefaultClockSkewToleranceMs int64 = 60_000
)

// ReadOptions controls a single ReadAnalysis call.
type ReadOptions struct {
	// MaxAgeMs overrides the reader's staleness bound; 0 means the default.
	MaxAgeMs int64
	// IgnoreStaleness returns the snapshot regardless of age.
	IgnoreStaleness bool
}

// ProjectStatus describes one cached project for status reporting.
type ProjectStatus struct {
	ProjectID  string `json:"project-id"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
	Fresh      bool   `json:"fresh"`
	DurationMs int64  `json:"duration-ms"`
}

// Status is the cache portion of the status command payload.
type Status struct {
	CacheDir string          `json:"cache-dir"`
	Projects []ProjectStatus `json:"projects"`
}

// decorated is the in-memory copy of a parsed snapshot, valid only while the
// on-disk metadata timestamp is unchanged.
type decorated struct {
	timestamp int64
	snap      *snapshot.Snapshot
}

// Reader reads project snapshots from the cache tree, applying the
// staleness policy and memoizing parsed payloads per (project, timestamp).
type Reader struct {
	dir             string
	maxAgeMs        int64
	skewToleranceMs int64
	logger          *logging.Logger

	mu          sync.Mutex
	decorations map[string]*decorated

	now func() time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxAge sets the default staleness bound.
func WithMaxAge(ms int64) Option {
	return func(r *Reader) {
		if ms > 0 {
			r.maxAgeMs = ms
		}
	}
}

// WithClockSkewTolerance sets the future-timestamp tolerance.
func WithClockSkewTolerance(ms int64) Option {
	return func(r *Reader) {
		if ms >= 0 {
			r.skewToleranceMs = ms
		}
	}
}

// WithClock replaces the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// NewReader creates a cache reader rooted at dir.
func NewReader(dir string, logger *logging.Logger, opts ...Option) *Reader {
	r := &Reader{
		dir:             dir,
		maxAgeMs:        DefaultMaxAgeMs,
		skewToleranceMs: DefaultClockSkewToleranceMs,
		logger:          logger,
		decorations:     make(map[string]*decorated),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the cache root.
func (r *Reader) Dir() string {
	return r.dir
}

// ReadMeta reads the metadata record for a project. Returns nil when the
// file is absent or malformed; parse failures are logged, never raised.
func (r *Reader) ReadMeta(projectID string) *snapshot.Meta {
	path := filepath.Join(r.dir, projectID, metaFile)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Cannot open cache metadata", map[string]interface{}{
				"project": projectID,
				"error":   err.Error(),
			})
		}
		return nil
	}
	defer f.Close()

	meta, err := snapshot.DecodeMeta(f)
	if err != nil {
		r.logger.Warn("Malformed cache metadata, treating as miss", map[string]interface{}{
			"project": projectID,
			"error":   err.Error(),
		})
		return nil
	}
	return meta
}

// ageMs computes the snapshot age, clamping small negative ages (producer
// clock slightly ahead) to zero. Returns ok=false when the timestamp sits
// beyond the skew tolerance in the future.
func (r *Reader) ageMs(meta *snapshot.Meta) (int64, bool) {
	age := r.now().UnixMilli() - meta.Timestamp*1000
	if age < 0 {
		if -age > r.skewToleranceMs {
			return 0, false
		}
		age = 0
	}
	return age, true
}

// CacheFresh reports whether a usable snapshot within the age bound exists.
// maxAgeMs of 0 means the reader default.
func (r *Reader) CacheFresh(projectID string, maxAgeMs int64) bool {
	meta := r.ReadMeta(projectID)
	if !meta.OK() {
		return false
	}
	if maxAgeMs <= 0 {
		maxAgeMs = r.maxAgeMs
	}
	age, ok := r.ageMs(meta)
	return ok && age <= maxAgeMs
}

// ReadAnalysis reads the snapshot for a project, applying the staleness
// policy. Returns nil on any miss: absent or malformed files, error-status
// metadata, or a stale snapshot (unless opts.IgnoreStaleness).
func (r *Reader) ReadAnalysis(projectID string, opts ReadOptions) *snapshot.Snapshot {
	meta := r.ReadMeta(projectID)
	if meta == nil {
		r.logger.Debug("Cache miss: no metadata", map[string]interface{}{
			"project": projectID,
		})
		return nil
	}
	if !meta.OK() {
		r.logger.Debug("Cache miss: error-status snapshot", map[string]interface{}{
			"project": projectID,
			"status":  meta.Status,
		})
		return nil
	}

	maxAge := opts.MaxAgeMs
	if maxAge <= 0 {
		maxAge = r.maxAgeMs
	}
	age, ok := r.ageMs(meta)
	if !ok {
		r.logger.Warn("Cache miss: metadata timestamp beyond clock-skew tolerance", map[string]interface{}{
			"project":   projectID,
			"timestamp": meta.Timestamp,
		})
		return nil
	}
	if age > maxAge && !opts.IgnoreStaleness {
		r.logger.Debug("Cache miss: snapshot stale", map[string]interface{}{
			"project": projectID,
			"age_ms":  age,
			"max_ms":  maxAge,
		})
		return nil
	}

	return r.readPayload(projectID, meta.Timestamp)
}

// readPayload returns the parsed snapshot, reusing the in-memory copy when
// the metadata timestamp is unchanged since the last successful read.
func (r *Reader) readPayload(projectID string, timestamp int64) *snapshot.Snapshot {
	r.mu.Lock()
	if dec, ok := r.decorations[projectID]; ok && dec.timestamp == timestamp {
		snap := dec.snap
		r.mu.Unlock()
		return snap
	}
	r.mu.Unlock()

	snap := r.parseDump(projectID)
	if snap == nil {
		return nil
	}

	r.mu.Lock()
	r.decorations[projectID] = &decorated{timestamp: timestamp, snap: snap}
	r.mu.Unlock()
	return snap
}

func (r *Reader) parseDump(projectID string) *snapshot.Snapshot {
	projectDir := filepath.Join(r.dir, projectID)

	if f, err := os.Open(filepath.Join(projectDir, dumpFile)); err == nil {
		defer f.Close()
		snap, err := snapshot.Decode(f)
		if err != nil {
			r.logger.Warn("Malformed snapshot payload, treating as miss", map[string]interface{}{
				"project": projectID,
				"error":   err.Error(),
			})
			return nil
		}
		return snap
	}

	f, err := os.Open(filepath.Join(projectDir, dumpFileGz))
	if err != nil {
		r.logger.Debug("Cache miss: no snapshot payload", map[string]interface{}{
			"project": projectID,
		})
		return nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		r.logger.Warn("Malformed compressed snapshot, treating as miss", map[string]interface{}{
			"project": projectID,
			"error":   err.Error(),
		})
		return nil
	}
	defer gz.Close()

	snap, err := snapshot.Decode(gz)
	if err != nil {
		r.logger.Warn("Malformed snapshot payload, treating as miss", map[string]interface{}{
			"project": projectID,
			"error":   err.Error(),
		})
		return nil
	}
	return snap
}

// ListCachedProjects returns every project id with a metadata file under the
// cache root, sorted lexicographically.
func (r *Reader) ListCachedProjects() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}

	var projects []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.dir, entry.Name(), metaFile)); err == nil {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects
}

// CacheStatus summarizes the cache tree for status reporting.
func (r *Reader) CacheStatus() Status {
	status := Status{
		CacheDir: r.dir,
		Projects: []ProjectStatus{},
	}

	for _, projectID := range r.ListCachedProjects() {
		meta := r.ReadMeta(projectID)
		if meta == nil {
			continue
		}
		fresh := false
		if meta.OK() {
			if age, ok := r.ageMs(meta); ok {
				fresh = age <= r.maxAgeMs
			}
		}
		status.Projects = append(status.Projects, ProjectStatus{
			ProjectID:  projectID,
			Status:     meta.Status,
			Timestamp:  meta.Timestamp,
			Fresh:      fresh,
			DurationMs: meta.DurationMs,
		})
	}
	return status
}
