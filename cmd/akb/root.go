package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"akb/internal/analysis"
	"akb/internal/cache"
	"akb/internal/config"
	"akb/internal/graphsync"
	"akb/internal/logging"
	"akb/internal/paths"
	"akb/internal/store"
	"akb/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// cacheDirFlag is the CLI --cache-dir flag value
	cacheDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "akb",
	Short: "AKB - Analysis Knowledge Bridge",
	Long: `AKB (Analysis Knowledge Bridge) serves precomputed code-analysis snapshots
over MCP, answers definition/call/dependency queries from them, and syncs the
derived graphs into a knowledge-graph store.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("AKB version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "",
		"Snapshot cache directory (default: AKB_CACHE_DIR or the user cache dir)")
}

// pipeline bundles the components shared by every command: configuration,
// cache reader, memoized analysis source, and the sync bridge.
type pipeline struct {
	cfg    *config.Config
	logger *logging.Logger
	cache  *cache.Reader
	memo   *analysis.Memoizer
	bridge *graphsync.Bridge
	store  *store.Store // nil when sync.backend is "none" or the store failed to open
}

func (p *pipeline) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}

func newPipeline() (*pipeline, error) {
	configDir, err := paths.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve config dir: %w", err)
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	analyzerCfg, err := config.LoadAnalyzerConfig(filepath.Join(configDir, "analyzer.toml"), cfg.Analyzer)
	if err != nil {
		return nil, fmt.Errorf("cannot load analyzer config: %w", err)
	}
	cfg.Analyzer = analyzerCfg

	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	cacheDir := cacheDirFlag
	if cacheDir == "" {
		cacheDir, err = paths.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve cache dir: %w", err)
		}
	}
	reader := cache.NewReader(cacheDir, logger,
		cache.WithMaxAge(cfg.Cache.MaxAgeMs),
		cache.WithClockSkewTolerance(cfg.Cache.ClockSkewToleranceMs),
	)

	analyzer := analysis.NewExecAnalyzer(cfg.Analyzer, logger)
	source := analysis.NewSource(reader, analyzer, logger)
	memo := analysis.NewMemoizer(source.AnalyzeProject,
		analysis.WithTTL(time.Duration(cfg.Cache.MemoTtlMs)*time.Millisecond))

	p := &pipeline{cfg: cfg, logger: logger, cache: reader, memo: memo}

	if cfg.Sync.Backend == "local" {
		storePath := cfg.Sync.StorePath
		if storePath == "" {
			storePath = filepath.Join(cacheDir, "graph.db")
		}
		st, err := store.Open(storePath, logger)
		if err != nil {
			// Sync degrades to a no-op; queries still work
			logger.Warn("Graph store unavailable", map[string]interface{}{
				"path":  storePath,
				"error": err.Error(),
			})
		} else {
			p.store = st
		}
	}

	caps := graphsync.Capabilities{}
	if p.store != nil {
		caps = p.store.Capabilities()
	}
	p.bridge = graphsync.NewBridge(caps, logger)

	return p, nil
}

func mustPipeline() *pipeline {
	p, err := newPipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return p
}

// projectRootArg resolves the optional positional project-root argument,
// defaulting to the current working directory.
func projectRootArg(args []string) string {
	if len(args) > 0 {
		return paths.NormalizePath(args[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
	return wd
}
