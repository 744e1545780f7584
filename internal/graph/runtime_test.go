package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/proto"
)

func setupTestStore(t *testing.T) *persistence.CheckpointStore {
	t.Helper()
	require.NoError(t, persistence.Reset())
	require.NoError(t, persistence.Initialize(t.TempDir()+"/graph_test.db"))
	t.Cleanup(func() { _ = persistence.Reset() })
	return persistence.NewCheckpointStore()
}

func textOf(msg proto.Message) string { return msg.Text }

func TestGraphRunsLinearPath(t *testing.T) {
	store := setupTestStore(t)

	b := NewBuilder("linear")
	b.AddNode(Node{
		Name: "a",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			return proto.Update{AppendMessages: []proto.Message{proto.NewAssistantMessage("from-a", nil)}}, nil
		},
		Edges: []string{"b"},
	})
	b.AddNode(Node{
		Name: "b",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			return proto.Update{AppendMessages: []proto.Message{proto.NewAssistantMessage("from-b", nil)}}, nil
		},
		Edges: []string{End},
	})
	b.Entry("a")

	g, err := b.Build(store, nil)
	require.NoError(t, err)

	state := &proto.GraphState{ThreadID: "t1", CorrelationID: "c1"}
	out, err := g.Run(context.Background(), "t1", state)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	require.Equal(t, "from-a", textOf(out.Messages[0]))
	require.Equal(t, "from-b", textOf(out.Messages[1]))
}

func TestBuildRejectsUnreachableSuccessor(t *testing.T) {
	b := NewBuilder("broken")
	b.AddNode(Node{
		Name:  "a",
		Run:   func(_ context.Context, s *proto.GraphState) (proto.Update, error) { return proto.Update{}, nil },
		Edges: []string{"ghost"},
	})
	b.Entry("a")

	_, err := b.Build(nil, nil)
	require.Error(t, err)
}

func TestGraphRoutesOnFailureToSink(t *testing.T) {
	store := setupTestStore(t)

	b := NewBuilder("failure-routed")
	b.AddNode(Node{
		Name: "risky",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			return proto.Update{}, errTransient("boom")
		},
		Edges:     []string{End},
		OnFailure: "handle_failure",
	})
	b.AddNode(Node{
		Name: "handle_failure",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			return proto.Update{AppendMessages: []proto.Message{proto.NewAssistantMessage("recovered", nil)}}, nil
		},
		Edges: []string{End},
	})
	b.Entry("risky")

	g, err := b.Build(store, nil)
	require.NoError(t, err)

	out, err := g.Run(context.Background(), "t2", &proto.GraphState{ThreadID: "t2"})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	require.Equal(t, "recovered", textOf(out.Messages[0]))
}

func TestGraphResumesFromCheckpoint(t *testing.T) {
	store := setupTestStore(t)

	visited := map[string]int{}
	b := NewBuilder("resumable")
	b.AddNode(Node{
		Name: "a",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			visited["a"]++
			return proto.Update{}, nil
		},
		Edges: []string{"b"},
	})
	b.AddNode(Node{
		Name: "b",
		Run: func(_ context.Context, s *proto.GraphState) (proto.Update, error) {
			visited["b"]++
			return proto.Update{AppendMessages: []proto.Message{proto.NewAssistantMessage("done", nil)}}, nil
		},
		Edges: []string{End},
	})
	b.Entry("a")

	g, err := b.Build(store, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "t3", "b", &proto.GraphState{ThreadID: "t3"}))

	out, err := g.Resume(context.Background(), "t3", &proto.GraphState{ThreadID: "t3"})
	require.NoError(t, err)
	require.Equal(t, 0, visited["a"])
	require.Equal(t, 1, visited["b"])
	require.Len(t, out.Messages, 1)
}

type errTransient string

func (e errTransient) Error() string { return string(e) }
