package engineering

import (
	"context"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// HandleFailureNode builds the sub-graph's failure sink (spec.md §4.4's
// handle_failure convention): marks the engineering run blocked so the
// Coordinator can relay the outcome and escalate for human review.
func HandleFailureNode() graph.Node {
	return graph.Node{
		Name: "handle_failure",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			status := proto.EngineeringBlocked
			needsApproval := true
			return proto.Update{EngineeringStatus: &status, NeedsHumanApproval: &needsApproval}, nil
		},
		Edges: []string{graph.End},
	}
}
