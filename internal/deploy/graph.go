// Package deploy implements the Deployment Sub-pipeline (spec.md §4.6):
// fetch_project_config -> env_analyzer -> secret_resolver ->
// readiness_check -> {deployer | END} -> verify_deployment -> END, with
// a shared handle_failure sink. Grounded on the teacher's
// pkg/architect/*.go state-machine style for a short, linear pipeline
// with a single escape hatch.
package deploy

import (
	"net/http"
	"time"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/eventlog"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/incidents"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/redisx"
)

// Config bundles the dependencies Build needs.
type Config struct {
	Crud          *crudclient.Client
	Redis         *redisx.Client
	Reporter      *incidents.Reporter
	Fetcher       ProjectConfigFetcher
	Repos         SecretSetter
	LLMClient     llm.Client
	LLMModel      string
	HTTPClient    *http.Client
	DeployTimeout time.Duration
	ProbeTimeout  time.Duration
}

// Build assembles the deploy sub-graph (spec.md §4.6).
func Build(cfg Config, store *persistence.CheckpointStore, events *eventlog.Writer) (*graph.Graph, error) {
	if cfg.DeployTimeout == 0 {
		cfg.DeployTimeout = 10 * time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}

	b := graph.NewBuilder("deploy")
	b.AddNode(FetchProjectConfigNode(cfg.Crud, cfg.Fetcher))
	b.AddNode(EnvAnalyzerNode(cfg.LLMClient, cfg.LLMModel))
	b.AddNode(SecretResolverNode(cfg.Crud))
	b.AddNode(ReadinessCheckNode())
	b.AddNode(DeployerNode(cfg.Redis, cfg.Crud, cfg.Repos, cfg.DeployTimeout))
	b.AddNode(VerifyDeploymentNode(cfg.HTTPClient, cfg.ProbeTimeout))
	b.AddNode(HandleFailureNode(cfg.Reporter))
	b.Entry("fetch_project_config")

	return b.Build(store, events)
}
