package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgeworks/sdo/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or force-release per-user session locks",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print the raw lock record for a user, if one is held",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionReleaseCmd = &cobra.Command{
	Use:   "release <user-id>",
	Short: "Force-release a user's session lock",
	Long: `release removes a user's session lock unconditionally. Use this to
recover a user stuck unable to send new messages after a worker crash
left a lock without a matching in-flight graph run (spec.md §4.2, §7).`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionRelease,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionReleaseCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	c, err := newCtl()
	if err != nil {
		return err
	}
	defer c.close()

	key := fmt.Sprintf("session:lock:%s", args[0])
	value, ok, err := c.rdb.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read lock record: %w", err)
	}
	if !ok {
		fmt.Printf("no lock held for user %s\n", args[0])
		return nil
	}
	fmt.Println(value)
	return nil
}

func runSessionRelease(cmd *cobra.Command, args []string) error {
	c, err := newCtl()
	if err != nil {
		return err
	}
	defer c.close()

	sessions := session.New(c.rdb, c.cfg.Session.LockTTL)
	if err := sessions.Release(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to release lock for user %s: %w", args[0], err)
	}

	fmt.Printf("released session lock for user %s\n", args[0])
	return nil
}
