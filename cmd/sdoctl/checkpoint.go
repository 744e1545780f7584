package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or force-replay graph checkpoints",
}

var checkpointInspectCmd = &cobra.Command{
	Use:   "inspect <thread-id>",
	Short: "Print the current node and state for a checkpointed thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointInspect,
}

var checkpointReplayCmd = &cobra.Command{
	Use:   "replay <thread-id>",
	Short: "Delete a thread's checkpoint so its next delivery starts fresh",
	Long: `replay deletes the stored checkpoint for thread-id. A durable job
redelivered (or a chat message sent) to that thread afterwards will find
no existing checkpoint and start the graph over from its entry node,
the same not-found fallback graph.Graph.Resume already relies on.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpointReplay,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointInspectCmd, checkpointReplayCmd)
}

func runCheckpointInspect(cmd *cobra.Command, args []string) error {
	c, err := newCtl()
	if err != nil {
		return err
	}
	defer c.close()

	node, state, err := c.checkpoints.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	fmt.Printf("node: %s\n%s\n", node, data)
	return nil
}

func runCheckpointReplay(cmd *cobra.Command, args []string) error {
	c, err := newCtl()
	if err != nil {
		return err
	}
	defer c.close()

	if _, _, err := c.checkpoints.Load(ctx, args[0]); err != nil {
		return fmt.Errorf("no checkpoint found for thread %s: %w", args[0], err)
	}

	if err := c.jobs.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to clear job bookkeeping for %s: %w", args[0], err)
	}

	if err := c.checkpoints.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete checkpoint for %s: %w", args[0], err)
	}

	fmt.Printf("checkpoint for %s cleared; next delivery will start fresh\n", args[0])
	return nil
}
