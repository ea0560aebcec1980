package analysis

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"akb/internal/config"
	"akb/internal/logging"
	"akb/internal/snapshot"
)

// ExecAnalyzer invokes a configured analyzer command as a subprocess. The
// command receives the project root as its final argument and must write a
// snapshot payload (analysis + dep-graph facets, project-only scope) as JSON
// on stdout.
type ExecAnalyzer struct {
	cfg    config.AnalyzerConfig
	logger *logging.Logger
}

// NewExecAnalyzer creates an analyzer client from configuration.
func NewExecAnalyzer(cfg config.AnalyzerConfig, logger *logging.Logger) *ExecAnalyzer {
	return &ExecAnalyzer{cfg: cfg, logger: logger}
}

// Available reports whether an analyzer command is configured and resolvable
// on PATH.
func (a *ExecAnalyzer) Available() bool {
	if a.cfg.Command == "" {
		return false
	}
	_, err := exec.LookPath(a.cfg.Command)
	return err == nil
}

// Analyze runs the analyzer synchronously. The subprocess enforces the
// configured timeout; akb itself does not retry.
func (a *ExecAnalyzer) Analyze(ctx context.Context, projectRoot string) (*snapshot.Snapshot, error) {
	if a.cfg.Command == "" {
		return nil, fmt.Errorf("no analyzer command configured")
	}

	if a.cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	args := append(append([]string{}, a.cfg.Args...), projectRoot)
	cmd := exec.CommandContext(ctx, a.cfg.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		a.logger.Error("Analyzer invocation failed", map[string]interface{}{
			"command": a.cfg.Command,
			"error":   err.Error(),
			"stderr":  stderr.String(),
		})
		return nil, fmt.Errorf("analyzer %s failed: %w", a.cfg.Command, err)
	}

	snap, err := snapshot.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("analyzer output is not a valid snapshot: %w", err)
	}

	a.logger.Info("Analyzer run complete", map[string]interface{}{
		"command":     a.cfg.Command,
		"duration_ms": time.Since(started).Milliseconds(),
		"files":       len(snap.Analysis),
	})
	return snap, nil
}
