package engineering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

type stubTestRunner struct {
	result TestResult
	err    error
}

func (s stubTestRunner) RunTests(context.Context, string) (TestResult, error) {
	return s.result, s.err
}

func TestTesterMarksDoneOnPass(t *testing.T) {
	node := TesterNode(stubTestRunner{result: TestResult{Passed: true, Counts: map[string]any{"passed": 12}}})
	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["workdir"] = "/tmp/work"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.EngineeringDone, state.EngineeringStatus)
	require.Equal(t, graph.End, node.Next(state))
}

func TestTesterRoutesBackToDeveloperOnFailureUnderLimit(t *testing.T) {
	node := TesterNode(stubTestRunner{result: TestResult{Passed: false, Feedback: "2 tests failed"}})
	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["workdir"] = "/tmp/work"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, 1, state.EngineeringIterations)
	require.Equal(t, "2 tests failed", state.ReviewFeedback)
	require.Equal(t, "developer", node.Next(state))
}

func TestTesterBlocksAfterMaxIterations(t *testing.T) {
	node := TesterNode(stubTestRunner{result: TestResult{Passed: false, Feedback: "still failing"}})
	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["workdir"] = "/tmp/work"
	state.EngineeringIterations = proto.MaxEngineeringIterations

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.EngineeringBlocked, state.EngineeringStatus)
	require.True(t, state.NeedsHumanApproval)
	require.Equal(t, graph.End, node.Next(state))
}
