package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"akb/internal/logging"
	"akb/internal/snapshot"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Output: &bytes.Buffer{}})
}

func writeMeta(t *testing.T, dir, projectID string, meta snapshot.Meta) {
	t.Helper()
	projectDir := filepath.Join(dir, projectID)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "meta.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeDump(t *testing.T, dir, projectID string, snap snapshot.Snapshot) {
	t.Helper()
	projectDir := filepath.Join(dir, projectID)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projectDir, "dump.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func sampleSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		Analysis: map[string]snapshot.FileBucket{
			"file:///src/core.clj": {
				VarDefinitions: []snapshot.Definition{
					{Ns: "my.app.core", Name: "handler", Filename: "file:///src/core.clj", Row: 10},
				},
			},
		},
		DepGraph: map[string]snapshot.DepEntry{
			"my.app.core": {Dependencies: map[string]int{"my.app.db": 2}},
		},
	}
}

func TestReadAnalysisFresh(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: now.Unix(), Status: "ok", ProjectID: "demo"})
	writeDump(t, dir, "demo", sampleSnapshot())

	r := NewReader(dir, testLogger())
	snap := r.ReadAnalysis("demo", ReadOptions{})
	if snap == nil {
		t.Fatal("expected snapshot for fresh cache")
	}
	if len(snap.Analysis) != 1 {
		t.Errorf("expected 1 analysis bucket, got %d", len(snap.Analysis))
	}
}

func TestReadAnalysisMissingProject(t *testing.T) {
	r := NewReader(t.TempDir(), testLogger())
	if snap := r.ReadAnalysis("nope", ReadOptions{}); snap != nil {
		t.Error("expected nil for absent project")
	}
}

func TestReadAnalysisErrorStatus(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: time.Now().Unix(), Status: "error"})
	writeDump(t, dir, "demo", sampleSnapshot())

	r := NewReader(dir, testLogger())
	if snap := r.ReadAnalysis("demo", ReadOptions{}); snap != nil {
		t.Error("error-status snapshots must be treated as absent")
	}
}

func TestReadAnalysisStale(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-1 * time.Hour)
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: old.Unix(), Status: "ok"})
	writeDump(t, dir, "demo", sampleSnapshot())

	r := NewReader(dir, testLogger())

	t.Run("stale snapshot is a miss", func(t *testing.T) {
		if snap := r.ReadAnalysis("demo", ReadOptions{}); snap != nil {
			t.Error("expected nil for stale snapshot")
		}
	})

	t.Run("ignore_staleness returns it anyway", func(t *testing.T) {
		if snap := r.ReadAnalysis("demo", ReadOptions{IgnoreStaleness: true}); snap == nil {
			t.Error("expected snapshot with IgnoreStaleness")
		}
	})

	t.Run("wider max age accepts it", func(t *testing.T) {
		if snap := r.ReadAnalysis("demo", ReadOptions{MaxAgeMs: 2 * 3600 * 1000}); snap == nil {
			t.Error("expected snapshot within widened bound")
		}
	})
}

func TestReadAnalysisMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, "demo")
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("malformed metadata", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(projectDir, "meta.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		r := NewReader(dir, testLogger())
		if snap := r.ReadAnalysis("demo", ReadOptions{}); snap != nil {
			t.Error("malformed metadata must be a miss, not an error")
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: time.Now().Unix(), Status: "ok"})
		if err := os.WriteFile(filepath.Join(projectDir, "dump.json"), []byte("][["), 0644); err != nil {
			t.Fatal(err)
		}
		r := NewReader(dir, testLogger())
		if snap := r.ReadAnalysis("demo", ReadOptions{}); snap != nil {
			t.Error("malformed payload must be a miss, not an error")
		}
	})
}

func TestReadAnalysisGzipPayload(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: time.Now().Unix(), Status: "ok"})

	data, err := json.Marshal(sampleSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "demo", "dump.json.gz"), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(dir, testLogger())
	snap := r.ReadAnalysis("demo", ReadOptions{})
	if snap == nil {
		t.Fatal("expected snapshot from compressed payload")
	}
	if _, ok := snap.DepGraph["my.app.core"]; !ok {
		t.Error("expected dep-graph entry from compressed payload")
	}
}

func TestDecorationSkipsReparse(t *testing.T) {
	dir := t.TempDir()
	ts := time.Now().Unix()
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: ts, Status: "ok"})
	writeDump(t, dir, "demo", sampleSnapshot())

	r := NewReader(dir, testLogger())
	first := r.ReadAnalysis("demo", ReadOptions{})
	if first == nil {
		t.Fatal("expected snapshot")
	}

	// Remove the payload; with an unchanged timestamp the in-memory copy
	// must be served without touching the file.
	if err := os.Remove(filepath.Join(dir, "demo", "dump.json")); err != nil {
		t.Fatal(err)
	}
	second := r.ReadAnalysis("demo", ReadOptions{})
	if second != first {
		t.Error("expected the decorated in-memory snapshot to be reused")
	}

	// Advancing the timestamp invalidates the decoration; with the payload
	// gone this is now a miss.
	writeMeta(t, dir, "demo", snapshot.Meta{Timestamp: ts + 5, Status: "ok"})
	if snap := r.ReadAnalysis("demo", ReadOptions{}); snap != nil {
		t.Error("expected re-read after timestamp change")
	}
}

func TestClockSkew(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	t.Run("slightly-future timestamp is fresh", func(t *testing.T) {
		writeMeta(t, dir, "ahead", snapshot.Meta{Timestamp: now.Add(30 * time.Second).Unix(), Status: "ok"})
		writeDump(t, dir, "ahead", sampleSnapshot())
		r := NewReader(dir, testLogger())
		if snap := r.ReadAnalysis("ahead", ReadOptions{}); snap == nil {
			t.Error("timestamp within skew tolerance should be fresh")
		}
	})

	t.Run("far-future timestamp is a miss", func(t *testing.T) {
		writeMeta(t, dir, "far", snapshot.Meta{Timestamp: now.Add(10 * time.Minute).Unix(), Status: "ok"})
		writeDump(t, dir, "far", sampleSnapshot())
		r := NewReader(dir, testLogger())
		if snap := r.ReadAnalysis("far", ReadOptions{}); snap != nil {
			t.Error("timestamp beyond skew tolerance should be a miss")
		}
	})

	t.Run("tolerance is configurable", func(t *testing.T) {
		writeMeta(t, dir, "cfg", snapshot.Meta{Timestamp: now.Add(10 * time.Minute).Unix(), Status: "ok"})
		writeDump(t, dir, "cfg", sampleSnapshot())
		r := NewReader(dir, testLogger(), WithClockSkewTolerance(15*60*1000))
		if snap := r.ReadAnalysis("cfg", ReadOptions{}); snap == nil {
			t.Error("widened tolerance should accept the snapshot")
		}
	})
}

func TestListCachedProjects(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "beta", snapshot.Meta{Timestamp: time.Now().Unix(), Status: "ok"})
	writeMeta(t, dir, "alpha", snapshot.Meta{Timestamp: time.Now().Unix(), Status: "error"})
	// Directory without metadata is not a cached project
	if err := os.MkdirAll(filepath.Join(dir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	r := NewReader(dir, testLogger())
	projects := r.ListCachedProjects()
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %v", projects)
	}
	if projects[0] != "alpha" || projects[1] != "beta" {
		t.Errorf("expected sorted project ids, got %v", projects)
	}
}

func TestCacheStatus(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeMeta(t, dir, "fresh", snapshot.Meta{Timestamp: now.Unix(), Status: "ok", DurationMs: 1200})
	writeMeta(t, dir, "stale", snapshot.Meta{Timestamp: now.Add(-1 * time.Hour).Unix(), Status: "ok"})
	writeMeta(t, dir, "broken", snapshot.Meta{Timestamp: now.Unix(), Status: "error"})

	r := NewReader(dir, testLogger())
	status := r.CacheStatus()

	if status.CacheDir != dir {
		t.Errorf("expected cache dir %q, got %q", dir, status.CacheDir)
	}
	if len(status.Projects) != 3 {
		t.Fatalf("expected 3 projects, got %d", len(status.Projects))
	}

	byID := map[string]ProjectStatus{}
	for _, p := range status.Projects {
		byID[p.ProjectID] = p
	}
	if !byID["fresh"].Fresh {
		t.Error("recent ok snapshot should be fresh")
	}
	if byID["fresh"].DurationMs != 1200 {
		t.Errorf("expected duration passthrough, got %d", byID["fresh"].DurationMs)
	}
	if byID["stale"].Fresh {
		t.Error("old snapshot should not be fresh")
	}
	if byID["broken"].Fresh {
		t.Error("error-status snapshot should not be fresh")
	}
}
