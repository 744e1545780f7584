package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgeworks/sdo/internal/config"
	"github.com/forgeworks/sdo/internal/preflight"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file (JSON or YAML)")
	flag.Parse()

	if _, err := config.LoadConfig(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("failed to get config: %v", err)
	}

	preflightCtx, preflightCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = preflight.Validate(preflightCtx, cfg)
	preflightCancel()
	if err != nil {
		log.Fatalf("preflight checks failed: %v", err)
	}

	orchestrator, err := NewOrchestrator(cfg)
	if err != nil {
		log.Fatalf("failed to build orchestrator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	go orchestrator.runChatListener(ctx, "sdo-chat")
	go orchestrator.runDeployWorker(ctx, "sdo-deploy")
	go orchestrator.runEngineeringWorker(ctx, "sdo-engineering")
	go runHealthServer(ctx, orchestrator.healthServer, orchestrator.logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	orchestrator.logger.Info("received signal %v, initiating graceful shutdown", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), orchestrator.shutdownTimeout)
	defer shutdownCancel()

	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
		os.Exit(1)
	}
}
