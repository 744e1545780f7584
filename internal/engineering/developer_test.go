package engineering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/proto"
)

type stubDeveloperAgent struct {
	summary        string
	err            error
	gotInstruction string
	gotFeedback    string
}

func (s *stubDeveloperAgent) RunTask(_ context.Context, _, instructions, reviewFeedback string) (string, error) {
	s.gotInstruction = instructions
	s.gotFeedback = reviewFeedback
	return s.summary, s.err
}

func TestDeveloperPassesInstructionsAndFeedbackToAgent(t *testing.T) {
	agent := &stubDeveloperAgent{summary: "implemented /start handler"}
	node := DeveloperNode(agent)

	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["workdir"] = "/tmp/work"
	state.RepositoryInfo["developer_instructions"] = "Wire up the /start handler."
	state.ReviewFeedback = "Previous attempt missed the /stop handler."

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.Equal(t, "Wire up the /start handler.", agent.gotInstruction)
	require.Equal(t, "Previous attempt missed the /stop handler.", agent.gotFeedback)
	require.Equal(t, "implemented /start handler", state.RepositoryInfo["developer_summary"])
}

func TestDeveloperRejectsMissingWorkdir(t *testing.T) {
	node := DeveloperNode(&stubDeveloperAgent{})
	state := proto.NewGraphState("t1", "corr-1")

	_, err := node.Run(context.Background(), state)
	require.Error(t, err)
	require.Equal(t, errs.KindInvariant, errs.KindOf(err))
}
