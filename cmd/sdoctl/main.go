// Command sdoctl is the operator CLI for the orchestrator: inspecting
// durable job queue depth, dumping or force-replaying graph
// checkpoints, and dumping or force-releasing per-user session locks.
// Grounded on cmd/agentctl and cmd/replayer's role as the teacher's own
// operator-facing tooling, rewired here onto github.com/spf13/cobra the
// way andymwolf-agentium structures its CLI (the teacher's own CLIs use
// bare flag, but that pack repo's cobra root/subcommand split is the
// idiomatic shape once the dependency is declared).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
