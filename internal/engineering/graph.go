package engineering

import (
	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/eventlog"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/persistence"
)

// Config bundles the dependencies Build needs.
type Config struct {
	Crud         *crudclient.Client
	Repos        RepoCreator
	Materializer ModuleMaterializer
	Agent        DeveloperAgent
	Tester       TestRunner
	LLMClient    llm.Client
	LLMModel     string
	WorkdirRoot  string
}

// Build assembles the engineering sub-graph (spec.md §4.7):
// architect -> preparer -> developer -> tester -> {developer | END}.
func Build(cfg Config, store *persistence.CheckpointStore, events *eventlog.Writer) (*graph.Graph, error) {
	b := graph.NewBuilder("engineering")
	b.AddNode(ArchitectNode(cfg.LLMClient, cfg.LLMModel, cfg.Crud, cfg.Repos))
	b.AddNode(PreparerNode(cfg.Materializer, cfg.WorkdirRoot))
	b.AddNode(DeveloperNode(cfg.Agent))
	b.AddNode(TesterNode(cfg.Tester))
	b.AddNode(HandleFailureNode())
	b.Entry("architect")

	return b.Build(store, events)
}
