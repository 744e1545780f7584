package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	c := Config{Agent: "claude"}.normalize()
	require.Equal(t, defaultTTLHours, c.TTLHours)
	require.Equal(t, defaultTimeoutMinutes, c.TimeoutMinutes)
}

func TestConfigNormalizePreservesExplicitValues(t *testing.T) {
	c := Config{Agent: "claude", TTLHours: 6, TimeoutMinutes: 30}.normalize()
	require.Equal(t, 6, c.TTLHours)
	require.Equal(t, 30, c.TimeoutMinutes)
}

func TestConfigAllows(t *testing.T) {
	c := Config{AllowedTools: []AllowedTool{AllowedDeploy, AllowedEngineer}}
	require.True(t, c.Allows(AllowedDeploy))
	require.False(t, c.Allows(AllowedAdmin))
}
