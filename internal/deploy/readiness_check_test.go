package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

func TestReadinessCheckEndsOnMissingSecrets(t *testing.T) {
	node := ReadinessCheckNode()
	state := proto.NewGraphState("t1", "corr-1")
	state.MissingUserSecrets = []string{"STRIPE_KEY"}

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.DeployFailedMissingSecrets, state.DeployStatus)
	require.Equal(t, graph.End, node.Next(state))
}

func TestReadinessCheckProceedsWhenResolved(t *testing.T) {
	node := ReadinessCheckNode()
	state := proto.NewGraphState("t1", "corr-1")

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.DeployRunning, state.DeployStatus)
	require.Equal(t, "deployer", node.Next(state))
}
