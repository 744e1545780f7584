package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreviewPortBindingsEmptyForNoPorts(t *testing.T) {
	exposed, bindings, err := previewPortBindings(nil)
	require.NoError(t, err)
	require.Nil(t, exposed)
	require.Nil(t, bindings)
}

func TestPreviewPortBindingsBindsLoopbackOnly(t *testing.T) {
	exposed, bindings, err := previewPortBindings([]int{3000, 8080})
	require.NoError(t, err)
	require.Len(t, exposed, 2)
	require.Len(t, bindings, 2)
	for _, bs := range bindings {
		require.Len(t, bs, 1)
		require.Equal(t, "127.0.0.1", bs[0].HostIP)
	}
}
