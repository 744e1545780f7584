package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgeworks/sdo/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Query aggregated LLM cost and token metrics from Prometheus",
}

var metricsCostCmd = &cobra.Command{
	Use:   "cost <model>",
	Short: "Print total prompt/completion tokens and USD spend for a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetricsCost,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.AddCommand(metricsCostCmd)
}

func runMetricsCost(cmd *cobra.Command, args []string) error {
	promURL := os.Getenv("PROMETHEUS_URL")
	if promURL == "" {
		promURL = "http://localhost:9090"
	}

	svc, err := metrics.NewQueryService(promURL)
	if err != nil {
		return fmt.Errorf("failed to reach prometheus at %s: %w", promURL, err)
	}

	queryCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	totals, err := svc.ModelTotals(queryCtx, args[0])
	if err != nil {
		return fmt.Errorf("failed to query metrics for model %s: %w", args[0], err)
	}

	fmt.Printf("model:             %s\n", totals.Model)
	fmt.Printf("prompt tokens:     %d\n", totals.PromptTokens)
	fmt.Printf("completion tokens: %d\n", totals.CompletionTokens)
	fmt.Printf("cost (USD):        %.4f\n", totals.CostUSD)
	return nil
}
