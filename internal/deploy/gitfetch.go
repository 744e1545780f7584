package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgeworks/sdo/internal/logx"
)

// GitEnvFetcher implements ProjectConfigFetcher by shallow-cloning a
// repository to a disposable directory and reading its .env.example,
// the same os/exec git-shell-out style as internal/engineering's
// GitClient, kept package-local rather than imported across packages
// so deploy does not need to depend on engineering for a single clone
// call (the same layering choice internal/container.DeveloperAdapter
// makes to avoid a container -> engineering import).
type GitEnvFetcher struct {
	workdirRoot string
	logger      *logx.Logger
	timeout     time.Duration
}

// NewGitEnvFetcher builds a GitEnvFetcher that clones into subdirectories
// of workdirRoot.
func NewGitEnvFetcher(workdirRoot string) *GitEnvFetcher {
	return &GitEnvFetcher{workdirRoot: workdirRoot, logger: logx.NewLogger("deploy.gitfetch"), timeout: 30 * time.Second}
}

// FetchEnvExample shallow-clones repositoryURL and returns the contents
// of its .env.example file, or "" if the repository has none.
func (f *GitEnvFetcher) FetchEnvExample(ctx context.Context, repositoryURL string) (string, error) {
	dir, err := os.MkdirTemp(f.workdirRoot, "envfetch-*")
	if err != nil {
		return "", fmt.Errorf("gitfetch: failed to create working directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			f.logger.Warn("gitfetch: failed to clean up %s: %v", dir, rmErr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repositoryURL, dir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("gitfetch: git clone %s failed: %w\nOutput: %s", repositoryURL, err, strings.TrimSpace(string(output)))
	}

	data, err := os.ReadFile(filepath.Join(dir, ".env.example"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("gitfetch: failed to read .env.example: %w", err)
	}
	return string(data), nil
}
