package engineering

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// DeveloperAgent is the minimal surface the developer node needs from
// the Agent Container Manager (C1): hand a task to a running container
// and wait for it to report completion. internal/container's factory
// wires the real implementation; tests substitute a stub.
type DeveloperAgent interface {
	RunTask(ctx context.Context, workdir, instructions, reviewFeedback string) (summary string, err error)
}

const developerTimeout = 15 * time.Minute

// DeveloperNode builds the developer graph node (spec.md §4.7): an
// agent-container turn that reads the task file, writes domain specs,
// runs the template's code generator, implements controllers, and
// commits/pushes from inside the container.
func DeveloperNode(agent DeveloperAgent) graph.Node {
	return graph.Node{
		Name: "developer",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			workdir := state.RepositoryInfo["workdir"]
			if workdir == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "developer: no workdir recorded on thread %s", state.ThreadID)
			}

			ctx, cancel := context.WithTimeout(ctx, developerTimeout)
			defer cancel()

			summary, err := agent.RunTask(ctx, workdir, state.RepositoryInfo["developer_instructions"], state.ReviewFeedback)
			if err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("developer: %w", err))
			}

			return proto.Update{RepositoryInfo: map[string]string{"developer_summary": summary}}, nil
		},
		Edges:     []string{"tester"},
		OnFailure: "handle_failure",
	}
}
