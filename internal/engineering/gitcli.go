// Package engineering implements the Engineering Sub-pipeline (spec.md
// §4.7): architect -> preparer -> developer -> tester, with bounded
// rework. Grounded on the teacher's pkg/architect/*.go state-machine
// style and pkg/coder's developer/tester review loop.
package engineering

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/forgeworks/sdo/internal/logx"
)

// GitClient runs git on the host against a working directory, the same
// shell-out style as the teacher's pkg/github.Client wraps the gh CLI.
type GitClient struct {
	dir     string
	logger  *logx.Logger
	timeout time.Duration
}

// NewGitClient builds a GitClient rooted at dir.
func NewGitClient(dir string) *GitClient {
	return &GitClient{dir: dir, logger: logx.NewLogger("engineering.git"), timeout: 60 * time.Second}
}

func (c *GitClient) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("Executing: git %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w\nOutput: %s", strings.Join(args, " "), err, string(output))
	}
	return output, nil
}

// Clone clones repoURL into the client's working directory.
func (c *GitClient) Clone(ctx context.Context, repoURL string) error {
	_, err := c.run(ctx, "clone", repoURL, c.dir)
	return err
}

// AddAll stages every change in the working directory.
func (c *GitClient) AddAll(ctx context.Context) error {
	_, err := c.run(ctx, "add", "-A")
	return err
}

// Commit commits the staged changes with message.
func (c *GitClient) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes the current branch to its upstream.
func (c *GitClient) Push(ctx context.Context) error {
	_, err := c.run(ctx, "push")
	return err
}
