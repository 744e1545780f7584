package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeworks/sdo/internal/config"
	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/redisx"
	"github.com/forgeworks/sdo/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sdoctl",
	Short: "Operator CLI for the software delivery orchestrator",
	Long: `sdoctl inspects and repairs the orchestrator's durable state:
job queue depth, graph checkpoints, and per-user session locks.`,
}

func init() {
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the orchestrator config file")
}

// ctl bundles the Redis and SQLite connections every subcommand needs,
// opened fresh per invocation rather than sharing the long-lived
// process singletons cmd/sdo builds.
type ctl struct {
	cfg         *config.Config
	rdb         *redisx.Client
	checkpoints *persistence.CheckpointStore
	jobs        *persistence.JobStore
}

func newCtl() (*ctl, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	rdb, err := redisx.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if err := persistence.Initialize(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	return &ctl{
		cfg:         cfg,
		rdb:         rdb,
		checkpoints: persistence.NewCheckpointStore(),
		jobs:        persistence.NewJobStore(),
	}, nil
}

func (c *ctl) close() {
	_ = c.rdb.Close()
	_ = persistence.Close()
}

var ctx = context.Background()
