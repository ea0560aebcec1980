package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"akb/internal/extract"
	"akb/internal/graphsync"
	"akb/internal/paths"
	"akb/internal/transform"
)

var (
	syncOutput    string
	syncScope     string
	syncProjectID string
	syncReplace   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [project-root]",
	Short: "Sync a project's analysis into the knowledge-graph store",
	Long: `Transform the project's analysis snapshot into memory entries and graph
edges, then push them to the configured store. With --replace, entries and
edges previously synced under the same scope are pruned first.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncOutput, "output", "json", "Output format (json, yaml)")
	syncCmd.Flags().StringVar(&syncScope, "scope", "", "Project scope tag (default: the project id)")
	syncCmd.Flags().StringVar(&syncProjectID, "project-id", "", "Override the derived project id")
	syncCmd.Flags().BoolVar(&syncReplace, "replace", false, "Prune the scope in the store before syncing")
	rootCmd.AddCommand(syncCmd)
}

// SyncResponseCLI reports one sync pass for CLI output
type SyncResponseCLI struct {
	ProjectID     string          `json:"project-id" yaml:"project-id"`
	Scope         string          `json:"scope" yaml:"scope"`
	Pruned        bool            `json:"pruned" yaml:"pruned"`
	AnalysisStats transform.Stats `json:"analysis-stats" yaml:"analysis-stats"`
	SyncStats     graphsync.Stats `json:"sync-stats" yaml:"sync-stats"`
}

func runSync(cmd *cobra.Command, args []string) {
	p := mustPipeline()
	defer p.Close()

	projectRoot := projectRootArg(args)
	result := p.memo.Analyze(context.Background(), projectRoot)
	if result.Failed() {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Err)
		os.Exit(1)
	}
	snap := result.Snapshot

	projectID := syncProjectID
	if projectID == "" {
		projectID = paths.ProjectID(projectRoot)
	}
	scope := syncScope
	if scope == "" {
		scope = p.cfg.Sync.DefaultScope
	}
	if scope == "" {
		scope = projectID
	}

	ctx := context.Background()
	pruned := false
	if syncReplace {
		if p.store == nil {
			fmt.Fprintln(os.Stderr, "Error: --replace requires a local graph store (sync.backend = local)")
			os.Exit(1)
		}
		if err := p.store.Prune(ctx, scope); err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning scope %q: %v\n", scope, err)
			os.Exit(1)
		}
		pruned = true
	}

	defs := extract.VarDefinitions(snap.Analysis)
	calls := extract.CallGraph(snap.Analysis)
	nsGraph := extract.NamespaceGraph(snap.DepGraph)
	ops := transform.AnalysisToGraphOperations(projectID, defs, calls, nsGraph)

	stats := p.bridge.Sync(ctx, projectID, ops, scope)

	printResponse(&SyncResponseCLI{
		ProjectID:     projectID,
		Scope:         scope,
		Pruned:        pruned,
		AnalysisStats: ops.Stats,
		SyncStats:     stats,
	}, syncOutput)
}
