package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// queueStreams are the durable stream names the Job Dispatcher (§4.3)
// and chat transport (§6) write to, reconstructed here rather than
// imported since jobqueue/chattransport keep them unexported (they are
// this process's own private wire contract, not a reusable constant).
var queueStreams = map[string]string{
	"deploy":        "deploy:queue",
	"engineering":   "engineering:queue",
	"chat-incoming": "chat:incoming",
	"chat-outgoing": "chat:outgoing",
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect durable job and chat streams",
}

var queueDepthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Print the total entry count (XLEN) of every durable stream",
	RunE:  runQueueDepth,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueDepthCmd)
}

func runQueueDepth(cmd *cobra.Command, args []string) error {
	c, err := newCtl()
	if err != nil {
		return err
	}
	defer c.close()

	fmt.Printf("%-16s %-20s %s\n", "NAME", "STREAM", "LENGTH")
	for name, stream := range queueStreams {
		length, err := c.rdb.Raw().XLen(ctx, stream).Result()
		if err != nil {
			fmt.Printf("%-16s %-20s error: %v\n", name, stream, err)
			continue
		}
		fmt.Printf("%-16s %-20s %d\n", name, stream, length)
	}
	return nil
}
