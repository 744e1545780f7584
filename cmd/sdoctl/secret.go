package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forgeworks/sdo/internal/engineering"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Push a CI secret to a project repository",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <owner/repo> <name>",
	Short: "Prompt for a secret value (no echo) and push it via the GitHub App",
	Args:  cobra.ExactArgs(2),
	RunE:  runSecretSet,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	owner, repo, err := splitOwnerRepo(args[0])
	if err != nil {
		return err
	}
	name := args[1]

	fmt.Fprintf(os.Stderr, "value for %s: ", name)
	valueBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read secret value: %w", err)
	}
	if len(valueBytes) == 0 {
		return fmt.Errorf("secret value must not be empty")
	}

	creator, err := newSecretRepoCreator()
	if err != nil {
		return err
	}

	setCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := creator.SetSecret(setCtx, owner, repo, name, string(valueBytes)); err != nil {
		return fmt.Errorf("failed to set secret %s on %s/%s: %w", name, owner, repo, err)
	}

	fmt.Printf("secret %s set on %s/%s\n", name, owner, repo)
	return nil
}

func splitOwnerRepo(spec string) (owner, repo string, err error) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '/' {
			return spec[:i], spec[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected owner/repo, got %q", spec)
}

// newSecretRepoCreator builds a GitHubRepoCreator from the same
// REPO_HOST_* environment variables cmd/sdo's bootstrap reads, so this
// CLI authenticates as the same GitHub App installation the running
// orchestrator process uses.
func newSecretRepoCreator() (*engineering.GitHubRepoCreator, error) {
	appID, err := strconv.ParseInt(os.Getenv("REPO_HOST_APP_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("REPO_HOST_APP_ID is not a valid integer: %w", err)
	}
	installationID, err := strconv.ParseInt(os.Getenv("REPO_HOST_INSTALLATION_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("REPO_HOST_INSTALLATION_ID is not a valid integer: %w", err)
	}
	keyPath := os.Getenv("REPO_HOST_PRIVATE_KEY_PATH")
	if keyPath == "" {
		return nil, fmt.Errorf("REPO_HOST_PRIVATE_KEY_PATH is not set")
	}
	privateKeyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", keyPath, err)
	}

	return engineering.NewGitHubRepoCreator(appID, installationID, privateKeyPEM, os.Getenv("REPO_HOST_OWNER"))
}
