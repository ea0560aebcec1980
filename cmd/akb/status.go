package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"akb/internal/cache"
	"akb/internal/version"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show AKB system status",
	Long:  "Display sync-bridge availability, cached projects, and graph store counts",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOutput, "output", "json", "Output format (json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

// StoreStatusCLI holds graph store counts for CLI output
type StoreStatusCLI struct {
	Entries int `json:"entries" yaml:"entries"`
	Edges   int `json:"edges" yaml:"edges"`
}

// StatusResponseCLI contains the complete system status for CLI output
type StatusResponseCLI struct {
	AkbVersion      string          `json:"akbVersion" yaml:"akbVersion"`
	BridgeAvailable bool            `json:"bridgeAvailable" yaml:"bridgeAvailable"`
	Cache           cache.Status    `json:"cache" yaml:"cache"`
	Store           *StoreStatusCLI `json:"store,omitempty" yaml:"store,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	p := mustPipeline()
	defer p.Close()

	resp := &StatusResponseCLI{
		AkbVersion:      version.Version,
		BridgeAvailable: p.bridge.Available(),
		Cache:           p.cache.CacheStatus(),
	}

	if p.store != nil {
		entries, edges, err := p.store.Counts(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading store counts: %v\n", err)
			os.Exit(1)
		}
		resp.Store = &StoreStatusCLI{Entries: entries, Edges: edges}
	}

	printResponse(resp, statusOutput)
}
