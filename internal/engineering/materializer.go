package engineering

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/forgeworks/sdo/internal/logx"
)

// TemplateMaterializer implements ModuleMaterializer by shallow-cloning
// the project template-generator repository once per call and copying
// each selected module's subdirectory into dir, the same
// clone-then-file-tree-copy shape the preparer node already uses for
// its own clone (GitClient), applied here to a second, template
// repository instead of the project's own empty repository. No pack
// example repo imports a dedicated file-tree-copy library (checked
// against every retrieved go.mod), so the copy step below is a plain
// filepath.WalkDir/os.Open loop rather than a third-party dependency.
type TemplateMaterializer struct {
	repositoryURL string
	logger        *logx.Logger
	timeout       time.Duration
}

// NewTemplateMaterializer builds a TemplateMaterializer over the
// configured template-generator repository URL.
func NewTemplateMaterializer(repositoryURL string) *TemplateMaterializer {
	return &TemplateMaterializer{repositoryURL: repositoryURL, logger: logx.NewLogger("engineering.materializer"), timeout: 60 * time.Second}
}

// Materialize clones the template repository and copies each named
// module's subdirectory (templateDir/modules/<name>) into dir.
func (m *TemplateMaterializer) Materialize(ctx context.Context, dir string, modules []string) error {
	if m.repositoryURL == "" {
		return fmt.Errorf("materializer: no template repository configured")
	}

	templateDir, err := os.MkdirTemp("", "template-*")
	if err != nil {
		return fmt.Errorf("materializer: failed to create template clone directory: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(templateDir); rmErr != nil {
			m.logger.Warn("materializer: failed to clean up %s: %v", templateDir, rmErr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	clone := NewGitClient(templateDir)
	if err := clone.Clone(ctx, m.repositoryURL); err != nil {
		return fmt.Errorf("materializer: failed to clone template repository: %w", err)
	}

	for _, module := range modules {
		src := filepath.Join(templateDir, "modules", module)
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("materializer: module %q not found in template: %w", module, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("materializer: module %q is not a directory in template", module)
		}
		if err := copyTree(src, dir); err != nil {
			return fmt.Errorf("materializer: failed to copy module %q: %w", module, err)
		}
	}
	return nil
}

// copyTree copies every file under src into dst, preserving relative
// paths and creating directories as needed.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
