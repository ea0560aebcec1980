package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"akb/internal/extract"
	"akb/internal/paths"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-root]",
	Short: "Analyze a project and print snapshot summary counts",
	Long: `Resolve the analysis snapshot for a project (cache first, external
analyzer fallback) and print file, namespace, and definition counts.
Defaults to the current working directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(analyzeCmd)
}

// AnalyzeResponseCLI summarizes one resolved snapshot for CLI output
type AnalyzeResponseCLI struct {
	ProjectID     string `json:"project-id" yaml:"project-id"`
	NumFiles      int    `json:"num-files" yaml:"num-files"`
	NumNamespaces int    `json:"num-namespaces" yaml:"num-namespaces"`
	NumVars       int    `json:"num-vars" yaml:"num-vars"`
	CacheStatus   string `json:"cache-status" yaml:"cache-status"`
}

func runAnalyze(cmd *cobra.Command, args []string) {
	p := mustPipeline()
	defer p.Close()

	projectRoot := projectRootArg(args)
	result := p.memo.Analyze(context.Background(), projectRoot)
	if result.Failed() {
		fmt.Fprintf(os.Stderr, "Error: %s\n", result.Err)
		os.Exit(1)
	}
	snap := result.Snapshot

	numFiles := 0
	for uri := range snap.Analysis {
		if strings.HasPrefix(uri, "file://") {
			numFiles++
		}
	}

	projectID := paths.ProjectID(projectRoot)
	cacheStatus := "miss"
	if p.cache.CacheFresh(projectID, 0) {
		cacheStatus = "fresh"
	}

	printResponse(&AnalyzeResponseCLI{
		ProjectID:     projectID,
		NumFiles:      numFiles,
		NumNamespaces: len(snap.DepGraph),
		NumVars:       len(extract.VarDefinitions(snap.Analysis)),
		CacheStatus:   cacheStatus,
	}, analyzeOutput)
}
