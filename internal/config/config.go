// Package config loads and validates the orchestrator's configuration:
// the model roster, resilience tuning, and the environment variables
// required by spec.md §6. It follows the teacher's pattern of a single
// process-wide config loaded once at startup and handed out by value so
// callers cannot mutate shared state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderOllama    Provider = "ollama"
)

// Model describes one LLM model's capabilities and limits, mirroring the
// teacher's pkg/config Model type.
type Model struct {
	Name           string   `json:"name" yaml:"name"`
	Provider       Provider `json:"provider" yaml:"provider"`
	MaxTPM         int      `json:"max_tpm" yaml:"max_tpm"`
	MaxConnections int      `json:"max_connections" yaml:"max_connections"`
	CPM            float64  `json:"cpm" yaml:"cpm"`
	DailyBudgetUSD float64  `json:"daily_budget_usd" yaml:"daily_budget_usd"`
}

// ResilienceConfig tunes the LLM client middleware chain (internal/llm/middleware).
type ResilienceConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	Retry   struct {
		MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
		InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
		MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
		BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
		Jitter        bool          `json:"jitter" yaml:"jitter"`
	} `json:"retry" yaml:"retry"`
	CircuitBreaker struct {
		FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"`
		SuccessThreshold int           `json:"success_threshold" yaml:"success_threshold"`
		Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// ContainerDefaults holds defaults for the declarative agent-container
// config contract (spec.md §6 "Agent container config contract").
type ContainerDefaults struct {
	TTLHours       int `json:"ttl_hours" yaml:"ttl_hours"`
	TimeoutMinutes int `json:"timeout_minutes" yaml:"timeout_minutes"`
}

// SessionConfig tunes the Session Coordinator (§4.2).
type SessionConfig struct {
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
}

// JobQueueConfig tunes the Durable Job Dispatcher (§4.3).
type JobQueueConfig struct {
	VisibilityTimeout  time.Duration `json:"visibility_timeout" yaml:"visibility_timeout"`
	CheckpointRetention time.Duration `json:"checkpoint_retention" yaml:"checkpoint_retention"`
	MaxConcurrentDeploysPerUser int   `json:"max_concurrent_deploys_per_user" yaml:"max_concurrent_deploys_per_user"`
}

// Config is the orchestrator's top-level, process-wide configuration.
//
//nolint:govet // logical grouping preferred over struct packing, matches teacher style
type Config struct {
	SchemaVersion int                `json:"schema_version" yaml:"schema_version"`
	Models        map[string]Model   `json:"models" yaml:"models"`
	Resilience    ResilienceConfig   `json:"resilience" yaml:"resilience"`
	Container     ContainerDefaults  `json:"container_defaults" yaml:"container_defaults"`
	Session       SessionConfig      `json:"session" yaml:"session"`
	JobQueue      JobQueueConfig     `json:"job_queue" yaml:"job_queue"`

	// TemplateRepositoryURL is the git URL of the template-generator
	// repository the engineering sub-pipeline's preparer materializes
	// selected modules from (engineering.ModuleMaterializer.Materialize
	// receives only a module-name list, not a per-project template
	// selector, so one canonical template repository is configured here;
	// per-project template variants are a module subdirectory within it).
	TemplateRepositoryURL string `json:"template_repository_url" yaml:"template_repository_url"`

	CoordinatorModel string `json:"coordinator_model" yaml:"coordinator_model"`
	ClassifierModel  string `json:"classifier_model" yaml:"classifier_model"`
	EnvAnalyzerModel string `json:"env_analyzer_model" yaml:"env_analyzer_model"`
	ArchitectModel   string `json:"architect_model" yaml:"architect_model"`

	RedisURL    string `json:"-" yaml:"-"`
	DatabaseURL string `json:"-" yaml:"-"`
	LogLevel    string `json:"-" yaml:"-"`
	LogFormat   string `json:"-" yaml:"-"`

	GracefulShutdownTimeoutSec int `json:"graceful_shutdown_timeout_sec" yaml:"graceful_shutdown_timeout_sec"`
}

//nolint:gochecknoglobals // intentional singleton, matches teacher's config package
var (
	current *Config
	mu      sync.RWMutex
)

// requiredEnvVars lists the environment variables spec.md §6 says "MUST
// fail service startup" if missing.
var requiredEnvVars = []string{
	"REDIS_URL",
	"DATABASE_URL",
	"CHAT_TRANSPORT_TOKEN",
	"REPO_HOST_APP_ID",
	"REPO_HOST_PRIVATE_KEY_PATH",
}

// LoadConfig reads the config file at path (JSON or YAML, by extension),
// validates required environment variables, and installs the result as
// the process-wide singleton.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := defaultConfig()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse json config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	return cfg, nil
}

func isYAML(path string) bool {
	n := len(path)
	return n >= 5 && (path[n-5:] == ".yaml" || path[n-4:] == ".yml")
}

func defaultConfig() *Config {
	cfg := &Config{
		SchemaVersion: 1,
		Models:        make(map[string]Model),
		Container: ContainerDefaults{
			TTLHours:       2,
			TimeoutMinutes: 10,
		},
		Session: SessionConfig{
			LockTTL: 30 * time.Minute,
		},
		JobQueue: JobQueueConfig{
			VisibilityTimeout:           5 * time.Minute,
			CheckpointRetention:         7 * 24 * time.Hour,
			MaxConcurrentDeploysPerUser: 1,
		},
		GracefulShutdownTimeoutSec: 30,
	}
	cfg.Resilience.Timeout = 120 * time.Second
	cfg.Resilience.Retry.MaxAttempts = 3
	cfg.Resilience.Retry.InitialDelay = 500 * time.Millisecond
	cfg.Resilience.Retry.MaxDelay = 10 * time.Second
	cfg.Resilience.Retry.BackoffFactor = 2.0
	cfg.Resilience.Retry.Jitter = true
	cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	cfg.Resilience.CircuitBreaker.SuccessThreshold = 2
	cfg.Resilience.CircuitBreaker.Timeout = 30 * time.Second
	return cfg
}

func applyEnv(cfg *Config) error {
	for _, name := range requiredEnvVars {
		if os.Getenv(name) == "" {
			return fmt.Errorf("missing required environment variable %s", name)
		}
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LogLevel = envOr("LOG_LEVEL", "info")
	cfg.LogFormat = envOr("LOG_FORMAT", "text")
	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func validate(cfg *Config) error {
	if cfg.CoordinatorModel == "" {
		return fmt.Errorf("config error: coordinator_model is required")
	}
	if cfg.ClassifierModel == "" {
		return fmt.Errorf("config error: classifier_model is required")
	}
	if _, ok := cfg.Models[cfg.CoordinatorModel]; !ok {
		return fmt.Errorf("config error: coordinator_model %q not present in models map", cfg.CoordinatorModel)
	}
	return nil
}

// GetConfig returns a copy of the current process-wide configuration.
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return nil, fmt.Errorf("config error: LoadConfig has not been called")
	}
	cp := *current
	cp.Models = make(map[string]Model, len(current.Models))
	for name, m := range current.Models {
		cp.Models[name] = m
	}
	return &cp, nil
}

// GetAPIKey returns the API credential for an LLM provider from its
// conventional environment variable.
func GetAPIKey(provider Provider) (string, error) {
	var envVar string
	switch provider {
	case ProviderAnthropic:
		envVar = "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		envVar = "OPENAI_API_KEY"
	case ProviderGoogle:
		envVar = "GOOGLE_API_KEY"
	case ProviderOllama:
		envVar = "OLLAMA_HOST"
	default:
		return "", fmt.Errorf("config error: unsupported provider %q", provider)
	}

	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("config error: %s not set for provider %s", envVar, provider)
	}
	return val, nil
}
