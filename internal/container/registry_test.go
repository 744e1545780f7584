package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type noopFactory struct{}

func (noopFactory) InstallCommands(capabilities []string, preInstalled map[string]bool) []string {
	return nil
}
func (noopFactory) InvokeCommand(cfg Config) []string  { return nil }
func (noopFactory) RequiredEnvVars(cfg Config) []string { return nil }
func (noopFactory) WriteInstructions(cfg Config) map[string]string { return nil }
func (noopFactory) SendMessage(ctx context.Context, exec ContainerExec, id, text string, session SessionContext) (SendResult, error) {
	return SendResult{}, nil
}

func TestRegistryLookupUnknownAgentFails(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	_, err := r.Lookup("claude")
	require.Error(t, err)
}

func TestRegistryLookupReturnsRegisteredFactory(t *testing.T) {
	r := NewRegistry()
	r.Register("claude", noopFactory{})
	r.Seal()

	f, err := r.Lookup("claude")
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestRegistryRegisterAfterSealPanics(t *testing.T) {
	r := NewRegistry()
	r.Seal()
	require.Panics(t, func() { r.Register("claude", noopFactory{}) })
}

func TestKnownCapabilitiesValidateRejectsUnknownCapability(t *testing.T) {
	k := NewKnownCapabilities()
	k.Add("git")
	k.Seal()

	require.NoError(t, k.Validate([]string{"git"}))
	require.Error(t, k.Validate([]string{"git", "telepathy"}))
}

func TestKnownCapabilitiesAddAfterSealPanics(t *testing.T) {
	k := NewKnownCapabilities()
	k.Seal()
	require.Panics(t, func() { k.Add("git") })
}
