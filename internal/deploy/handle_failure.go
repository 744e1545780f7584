package deploy

import (
	"context"
	"time"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/incidents"
	"github.com/forgeworks/sdo/internal/proto"
)

// HandleFailureNode builds the sub-graph's failure sink (spec.md §4.6 /
// §4.4's handle_failure convention): records an incident against the
// allocated server, if one was reached, and ends the sub-graph so the
// Coordinator can relay the outcome to the user.
func HandleFailureNode(reporter *incidents.Reporter) graph.Node {
	return graph.Node{
		Name: "handle_failure",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			status := proto.DeployFailed
			now := time.Now().UTC()

			serverHandle := state.AllocatedResources["server_handle"]
			if serverHandle != "" && reporter != nil {
				reason := state.DeployError
				if reason == "" {
					reason = "deployment failed"
				}
				// Best-effort: an incident-reporting failure must not mask
				// the original deployment failure being surfaced below.
				_ = reporter.Report(ctx, serverHandle, reason, state.ThreadID)
			}

			return proto.Update{DeployStatus: &status, DeployFinishedAt: &now}, nil
		},
		Edges: []string{graph.End},
	}
}
