package deploy

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// ProjectConfigFetcher pulls the external project record plus its
// repository's .env.example content. A real implementation clones or
// shallow-fetches the repo; tests substitute a stub.
type ProjectConfigFetcher interface {
	FetchEnvExample(ctx context.Context, repositoryURL string) (string, error)
}

// FetchProjectConfigNode builds the fetch_project_config graph node
// (spec.md §4.6's sub-graph entry point).
func FetchProjectConfigNode(crud *crudclient.Client, fetcher ProjectConfigFetcher) graph.Node {
	return graph.Node{
		Name: "fetch_project_config",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			if state.CurrentProject == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "fetch_project_config: no current_project set on thread %s", state.ThreadID)
			}
			project, err := crud.GetProject(ctx, state.CurrentProject)
			if err != nil {
				return proto.Update{}, fmt.Errorf("fetch_project_config: %w", err)
			}
			if project.RepositoryURL == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "fetch_project_config: project %s has no repository_url", state.CurrentProject)
			}

			envExample, err := fetcher.FetchEnvExample(ctx, project.RepositoryURL)
			if err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("fetch_project_config: failed to fetch .env.example: %w", err))
			}

			repoInfo := map[string]string{
				"repository_url": project.RepositoryURL,
				"env_example":    envExample,
				"project_name":   project.Name,
			}
			return proto.Update{RepositoryInfo: repoInfo}, nil
		},
		Edges:     []string{"env_analyzer"},
		OnFailure: "handle_failure",
	}
}
