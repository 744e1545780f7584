package engineering

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// ModuleMaterializer writes a template's module files into dir. A real
// implementation renders the project template's scaffolding; tests
// substitute a stub that just drops marker files.
type ModuleMaterializer interface {
	Materialize(ctx context.Context, dir string, modules []string) error
}

const agentGuideContent = `# Agent Guide

This repository was scaffolded by the engineering sub-pipeline. Implement the task described in
TASK.md using the modules already materialized here.
`

// PreparerNode builds the preparer graph node (spec.md §4.7): clones the
// empty repository, materializes the architect's selected modules,
// writes the task and agent-guide files, then commits and pushes.
func PreparerNode(materializer ModuleMaterializer, workdirRoot string) graph.Node {
	return graph.Node{
		Name: "preparer",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			repoURL := state.RepositoryInfo["repository_url"]
			if repoURL == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "preparer: no repository_url recorded on thread %s", state.ThreadID)
			}

			ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
			defer cancel()

			dir, err := os.MkdirTemp(workdirRoot, "prep-*")
			if err != nil {
				return proto.Update{}, fmt.Errorf("preparer: failed to create working directory: %w", err)
			}

			git := NewGitClient(dir)
			if err := git.Clone(ctx, repoURL); err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("preparer: %w", err))
			}

			modules := splitModules(state.RepositoryInfo["selected_modules"])
			if err := materializer.Materialize(ctx, dir, modules); err != nil {
				return proto.Update{}, fmt.Errorf("preparer: failed to materialize modules: %w", err)
			}

			taskContent := fmt.Sprintf("# Task\n\n%s\n\n## Developer instructions\n\n%s\n", state.ProjectSpec, state.RepositoryInfo["developer_instructions"])
			if err := os.WriteFile(filepath.Join(dir, "TASK.md"), []byte(taskContent), 0o644); err != nil {
				return proto.Update{}, fmt.Errorf("preparer: failed to write TASK.md: %w", err)
			}
			if err := os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte(agentGuideContent), 0o644); err != nil {
				return proto.Update{}, fmt.Errorf("preparer: failed to write AGENTS.md: %w", err)
			}

			if err := git.AddAll(ctx); err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("preparer: %w", err))
			}
			if err := git.Commit(ctx, "Scaffold project from template"); err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("preparer: %w", err))
			}
			if err := git.Push(ctx); err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("preparer: %w", err))
			}

			return proto.Update{RepositoryInfo: map[string]string{"workdir": dir}}, nil
		},
		Edges:     []string{"developer"},
		OnFailure: "handle_failure",
	}
}

func splitModules(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
