package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeworks/sdo/internal/config"
	"github.com/forgeworks/sdo/internal/preflight"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Run the orchestrator's startup dependency checks without starting it",
	Long: `preflight runs the same Docker, repository-host, and LLM-provider
checks cmd/sdo runs before accepting traffic, printing a pass/fail line per
check. Useful for diagnosing a crash-looping deployment without tailing logs.`,
	RunE: runPreflight,
}

func init() {
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := preflight.Run(checkCtx, cfg)
	for _, c := range results.Checks {
		status := "ok"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("[%s] %-12s %s\n", status, c.Provider, c.Message)
	}

	if !results.Passed {
		return fmt.Errorf("one or more preflight checks failed")
	}
	return nil
}
