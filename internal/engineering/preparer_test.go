package engineering

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/proto"
)

type stubMaterializer struct {
	modules []string
}

func (s *stubMaterializer) Materialize(_ context.Context, dir string, modules []string) error {
	s.modules = modules
	return os.WriteFile(filepath.Join(dir, "module_marker.txt"), []byte("scaffolded"), 0o644)
}

func TestPreparerRejectsMissingRepositoryURL(t *testing.T) {
	node := PreparerNode(&stubMaterializer{}, t.TempDir())
	state := proto.NewGraphState("t1", "corr-1")

	_, err := node.Run(context.Background(), state)
	require.Error(t, err)
	require.Equal(t, errs.KindInvariant, errs.KindOf(err))
}

func TestSplitModulesHandlesEmptyAndPopulated(t *testing.T) {
	require.Nil(t, splitModules(""))
	require.Equal(t, []string{"telegram", "postgres"}, splitModules("telegram,postgres"))
}
