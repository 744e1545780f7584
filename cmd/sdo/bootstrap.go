package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/forgeworks/sdo/internal/config"
	"github.com/forgeworks/sdo/internal/container"
	"github.com/forgeworks/sdo/internal/coordinator"
	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/deploy"
	"github.com/forgeworks/sdo/internal/engineering"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/eventlog"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/incidents"
	"github.com/forgeworks/sdo/internal/jobqueue"
	"github.com/forgeworks/sdo/internal/knowledge"
	"github.com/forgeworks/sdo/internal/limiter"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/metrics"
	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/redisx"
	"github.com/forgeworks/sdo/internal/session"

	"github.com/forgeworks/sdo/internal/chattransport"
)

// Orchestrator is the process's top-level dependency bag, the same
// role main.go's own Orchestrator struct plays for the teacher: one
// struct holding every long-lived singleton, built once at startup and
// torn down once during Shutdown.
//
//nolint:govet // logical grouping preferred over struct packing, matches teacher style
type Orchestrator struct {
	cfg    *config.Config
	logger *logx.Logger

	rdb         *redisx.Client
	limiter     *limiter.Limiter
	metrics     *metrics.Registry
	llm         *llm.Factory
	events      *eventlog.Writer
	checkpoints *persistence.CheckpointStore
	jobs        *persistence.JobStore

	sessions   *session.Coordinator
	chat       *chattransport.Transport
	dispatcher *jobqueue.Dispatcher
	containers *container.Manager
	crud       *crudclient.Client

	coordinatorRegistry *coordinator.Registry
	coordinatorGraph    *graph.Graph
	deployGraph         *graph.Graph
	engineeringGraph    *graph.Graph

	healthServer *http.Server

	shutdownTimeout time.Duration
}

// NewOrchestrator wires every component SPEC_FULL.md names into a
// runnable process, in dependency order: resource singletons, then the
// domain packages layered on top of them, then the three graphs.
func NewOrchestrator(cfg *config.Config) (*Orchestrator, error) {
	logger := logx.NewLogger("sdo")

	rdb, err := redisx.New(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to connect to redis: %w", err)
	}

	lim := limiter.New(cfg)
	metricsReg := metrics.New()
	llmFactory := llm.NewFactory(cfg, lim, metricsReg)

	events, err := eventlog.NewWriter("logs")
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to open event log: %w", err)
	}

	if err := persistence.Initialize(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("sdo: failed to initialize checkpoint database: %w", err)
	}
	checkpoints := persistence.NewCheckpointStore()
	jobs := persistence.NewJobStore()

	if err := knowledge.EnsureSchema(persistence.GetDB()); err != nil {
		return nil, fmt.Errorf("sdo: failed to prepare knowledge store schema: %w", err)
	}
	knowledgeStore := knowledge.NewStore()

	sessions := session.New(rdb, cfg.Session.LockTTL)

	chat := chattransport.New(rdb)
	if err := chat.EnsureGroup(context.Background()); err != nil {
		return nil, fmt.Errorf("sdo: failed to ensure chat consumer group: %w", err)
	}

	dispatcher := jobqueue.New(rdb)
	if err := dispatcher.EnsureGroup(context.Background(), jobqueue.KindDeploy); err != nil {
		return nil, fmt.Errorf("sdo: failed to ensure deploy job queue group: %w", err)
	}
	if err := dispatcher.EnsureGroup(context.Background(), jobqueue.KindEngineering); err != nil {
		return nil, fmt.Errorf("sdo: failed to ensure engineering job queue group: %w", err)
	}

	crud := crudclient.New(envOr("CRUD_BASE_URL", "http://localhost:8090"), envOr("CRUD_TOKEN", ""))

	containerRegistry := container.NewRegistry()
	containerRegistry.Register("claude", container.ClaudeFactory{})
	containerRegistry.Register("codex", container.CodexFactory{})
	containerRegistry.Seal()

	knownCapabilities := container.NewKnownCapabilities()
	for _, c := range []string{"git", "node", "python", "go", "docker"} {
		knownCapabilities.Add(c)
	}
	knownCapabilities.Seal()

	dockerExec, err := container.NewDockerExec(envOr("SDO_AGENT_NETWORK", "sdo-agents"))
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build docker executor: %w", err)
	}
	containers := container.NewManager(containerRegistry, knownCapabilities, dockerExec, rdb)

	workdirRoot := envOr("SDO_WORKDIR_ROOT", os.TempDir())

	repoCreator, err := newRepoCreator()
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build repository creator: %w", err)
	}

	reporter := incidents.New(crud)

	coordinatorRegistry := coordinator.NewRegistry()
	coordinator.RegisterBaseTools(coordinatorRegistry)
	deploy.RegisterCapability(coordinatorRegistry, crud, dispatcher, checkpoints)
	engineering.RegisterCapability(coordinatorRegistry, crud, dispatcher, checkpoints)
	coordinatorRegistry.Seal()

	coordinatorClient, err := llmFactory.CreateClient(cfg.CoordinatorModel)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build coordinator llm client: %w", err)
	}
	classifierClient, err := llmFactory.CreateClient(cfg.ClassifierModel)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build classifier llm client: %w", err)
	}
	envAnalyzerClient, err := llmFactory.CreateClient(cfg.EnvAnalyzerModel)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build env-analyzer llm client: %w", err)
	}
	architectClient, err := llmFactory.CreateClient(cfg.ArchitectModel)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build architect llm client: %w", err)
	}

	knowledgeSearcher := &knowledgeAdapter{store: knowledgeStore}
	coord := coordinator.New(coordinatorClient, cfg.CoordinatorModel, coordinatorRegistry, func(state *proto.GraphState) *coordinator.RunContext {
		return &coordinator.RunContext{
			ThreadID:      state.ThreadID,
			UserID:        state.TelegramUserID,
			ChatID:        state.TelegramUserID,
			CorrelationID: state.CorrelationID,
			Registry:      coordinatorRegistry,
			Outbound:      chat,
			Knowledge:     knowledgeSearcher,
		}
	})
	classifier := coordinator.NewClassifier(classifierClient, cfg.ClassifierModel, coordinatorRegistry)

	coordinatorGraph, err := graph.NewBuilder("coordinator").
		AddNode(classifier.Node(classifierHints)).
		AddNode(coord.Node()).
		Entry("intent_classifier").
		Build(checkpoints, events)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build coordinator graph: %w", err)
	}

	deployGraph, err := deploy.Build(deploy.Config{
		Crud:          crud,
		Redis:         rdb,
		Reporter:      reporter,
		Fetcher:       deploy.NewGitEnvFetcher(workdirRoot),
		Repos:         repoCreator,
		LLMClient:     envAnalyzerClient,
		LLMModel:      cfg.EnvAnalyzerModel,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
		DeployTimeout: 10 * time.Minute,
		ProbeTimeout:  10 * time.Second,
	}, checkpoints, events)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build deploy graph: %w", err)
	}

	developerAdapter := container.NewDeveloperAdapter(containers, developerContainerConfig())

	engineeringGraph, err := engineering.Build(engineering.Config{
		Crud:         crud,
		Repos:        repoCreator,
		Materializer: engineering.NewTemplateMaterializer(envOr("TEMPLATE_REPOSITORY_URL", "")),
		Agent:        developerAdapter,
		Tester:       engineering.NewShellTestRunner([]string{"make", "test"}, 10*time.Minute),
		LLMClient:    architectClient,
		LLMModel:     cfg.ArchitectModel,
		WorkdirRoot:  workdirRoot,
	}, checkpoints, events)
	if err != nil {
		return nil, fmt.Errorf("sdo: failed to build engineering graph: %w", err)
	}

	shutdownTimeout := time.Duration(cfg.GracefulShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Orchestrator{
		cfg:    cfg,
		logger: logger,

		rdb:         rdb,
		limiter:     lim,
		metrics:     metricsReg,
		llm:         llmFactory,
		events:      events,
		checkpoints: checkpoints,
		jobs:        jobs,

		sessions:   sessions,
		chat:       chat,
		dispatcher: dispatcher,
		containers: containers,
		crud:       crud,

		coordinatorRegistry: coordinatorRegistry,
		coordinatorGraph:    coordinatorGraph,
		deployGraph:         deployGraph,
		engineeringGraph:    engineeringGraph,

		healthServer: newHealthServer(envOr("SDO_HEALTH_ADDR", ":8080")),

		shutdownTimeout: shutdownTimeout,
	}, nil
}

// Shutdown performs graceful shutdown in the same close-resources-then-
// stop-workers order the teacher's own Orchestrator.Shutdown follows:
// persistence first (nothing should write a checkpoint after this),
// then the event log and the Redis connection every other component
// shares.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.logger.Info("starting graceful shutdown")

	if err := persistence.Close(); err != nil {
		o.logger.Error("failed to close persistence database: %v", err)
	}

	if err := o.events.Close(); err != nil {
		o.logger.Error("failed to close event log: %v", err)
	}

	if err := o.rdb.Close(); err != nil {
		o.logger.Error("failed to close redis connection: %v", err)
	}

	o.logger.Info("graceful shutdown completed")
	return nil
}

// newRepoCreator builds the GitHub-App-backed RepoCreator from the
// repository-host environment variables spec.md §6 requires
// (REPO_HOST_APP_ID, REPO_HOST_PRIVATE_KEY_PATH) plus the installation
// and owner identifiers a single-tenant deployment of this system also
// needs but the config schema does not itself validate, mirroring
// main.go's own direct os.Getenv reads for GITHUB_TOKEN.
func newRepoCreator() (*engineering.GitHubRepoCreator, error) {
	appID, err := parseEnvInt64("REPO_HOST_APP_ID")
	if err != nil {
		return nil, err
	}
	installationID, err := parseEnvInt64("REPO_HOST_INSTALLATION_ID")
	if err != nil {
		return nil, err
	}
	keyPath := os.Getenv("REPO_HOST_PRIVATE_KEY_PATH")
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read REPO_HOST_PRIVATE_KEY_PATH %s: %w", keyPath, err)
	}
	owner := envOr("REPO_HOST_OWNER", "")
	return engineering.NewGitHubRepoCreator(appID, installationID, key, owner)
}

func developerContainerConfig() container.Config {
	return container.Config{
		Agent:          "claude",
		Capabilities:   []string{"git", "node"},
		AllowedTools:   []container.AllowedTool{container.AllowedEngineer},
		HasInternet:    true,
		TTLHours:       2,
		TimeoutMinutes: 15,
	}
}

// classifierHints derives the cheap-model gate's signals from the
// state a fresh thread carries in (spec.md §4.5 "Intent Classifier").
func classifierHints(state *proto.GraphState) coordinator.ClassifierHints {
	return coordinator.ClassifierHints{
		HasCurrentProject:     state.CurrentProject != "",
		HasAllocatedResources: len(state.AllocatedResources) > 0,
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func parseEnvInt64(name string) (int64, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, fmt.Errorf("missing required environment variable %s", name)
	}
	var n int64
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, errs.New(errs.KindConfig, "environment variable %s is not a valid integer: %v", name, err)
	}
	return n, nil
}
