package testkit

import (
	"testing"

	"github.com/forgeworks/sdo/internal/proto"
)

// AssertDeployStatus verifies the Graph State's deploy_status field,
// the generalization of pkg/testkit's AssertMessageType for this
// system's typed state record in place of the teacher's AgentMsg.
func AssertDeployStatus(t *testing.T, state *proto.GraphState, expected proto.DeployStatus) {
	t.Helper()
	if state.DeployStatus != expected {
		t.Errorf("expected deploy_status %q, got %q", expected, state.DeployStatus)
	}
}

// AssertEngineeringStatus verifies the Graph State's
// engineering_status field.
func AssertEngineeringStatus(t *testing.T, state *proto.GraphState, expected proto.EngineeringStatus) {
	t.Helper()
	if state.EngineeringStatus != expected {
		t.Errorf("expected engineering_status %q, got %q", expected, state.EngineeringStatus)
	}
}

// AssertLastMessageRole verifies the role of the most recently
// appended message in the conversation history.
func AssertLastMessageRole(t *testing.T, state *proto.GraphState, expected proto.Role) {
	t.Helper()
	if len(state.Messages) == 0 {
		t.Error("expected at least one message, got none")
		return
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Role != expected {
		t.Errorf("expected last message role %q, got %q", expected, last.Role)
	}
}

// AssertLastMessageContains verifies the most recently appended
// message's text contains substr.
func AssertLastMessageContains(t *testing.T, state *proto.GraphState, substr string) {
	t.Helper()
	if len(state.Messages) == 0 {
		t.Error("expected at least one message, got none")
		return
	}
	last := state.Messages[len(state.Messages)-1]
	if !contains(last.Text, substr) {
		t.Errorf("expected last message text to contain %q, got %q", substr, last.Text)
	}
}

// AssertNoToolError verifies the given tool result did not carry an
// error (spec.md §7 "tool-layer errors become tool-result messages
// with {error, error_type}").
func AssertNoToolError(t *testing.T, result proto.ToolResult) {
	t.Helper()
	if result.Error != "" {
		t.Errorf("expected no tool error, got %q (kind %q)", result.Error, result.ErrorKind)
	}
}

// AssertMutuallyExclusive verifies the awaiting_user_response /
// user_confirmed_complete invariant (§3) holds on state.
func AssertMutuallyExclusive(t *testing.T, state *proto.GraphState) {
	t.Helper()
	if state.AwaitingUserResponse && state.UserConfirmedComplete {
		t.Error("awaiting_user_response and user_confirmed_complete must not both be true")
	}
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
