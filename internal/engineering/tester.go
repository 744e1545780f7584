package engineering

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// TestResult is the outcome of one test-suite run.
type TestResult struct {
	Passed   bool
	Feedback string
	Counts   map[string]any
}

// TestRunner runs a project's test suite in a sandbox and parses
// pass/fail counts. A real implementation execs the template's test
// command inside a disposable container; tests substitute a stub.
type TestRunner interface {
	RunTests(ctx context.Context, workdir string) (TestResult, error)
}

// TesterNode builds the tester graph node (spec.md §4.7): runs the
// suite, and on failure routes back to developer until
// MaxEngineeringIterations test runs have failed, when it marks the
// thread blocked for human approval instead.
func TesterNode(runner TestRunner) graph.Node {
	return graph.Node{
		Name: "tester",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			workdir := state.RepositoryInfo["workdir"]
			if workdir == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "tester: no workdir recorded on thread %s", state.ThreadID)
			}

			result, err := runner.RunTests(ctx, workdir)
			if err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("tester: %w", err))
			}

			update := proto.Update{TestResults: result.Counts}

			if result.Passed {
				status := proto.EngineeringDone
				update.EngineeringStatus = &status
				return update, nil
			}

			iterations := state.EngineeringIterations + 1
			if iterations >= proto.MaxEngineeringIterations {
				status := proto.EngineeringBlocked
				needsApproval := true
				update.EngineeringStatus = &status
				update.NeedsHumanApproval = &needsApproval
				update.ReviewFeedback = &result.Feedback
				return update, nil
			}

			update.EngineeringIterations = &iterations
			update.ReviewFeedback = &result.Feedback
			return update, nil
		},
		Next: func(state *proto.GraphState) string {
			if state.EngineeringStatus == proto.EngineeringDone || state.EngineeringStatus == proto.EngineeringBlocked {
				return graph.End
			}
			return "developer"
		},
		Edges:     []string{"developer", graph.End},
		OnFailure: "handle_failure",
	}
}
