package deploy

import (
	"context"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// ReadinessCheckNode builds the readiness_check graph node (spec.md
// §4.6): if any user variable remains unresolved, the sub-graph ends so
// the Coordinator can relay the request to the human.
func ReadinessCheckNode() graph.Node {
	return graph.Node{
		Name: "readiness_check",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			if len(state.MissingUserSecrets) > 0 {
				status := proto.DeployFailedMissingSecrets
				return proto.Update{DeployStatus: &status}, nil
			}
			status := proto.DeployRunning
			return proto.Update{DeployStatus: &status}, nil
		},
		Next: func(state *proto.GraphState) string {
			if state.DeployStatus == proto.DeployFailedMissingSecrets {
				return graph.End
			}
			return "deployer"
		},
		Edges: []string{"deployer", graph.End},
	}
}
