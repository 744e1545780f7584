package llm

import (
	"fmt"

	"github.com/forgeworks/sdo/internal/config"
	"github.com/forgeworks/sdo/internal/limiter"
	"github.com/forgeworks/sdo/internal/llm/middleware/circuit"
	"github.com/forgeworks/sdo/internal/llm/middleware/metricsmw"
	"github.com/forgeworks/sdo/internal/llm/middleware/ratelimit"
	"github.com/forgeworks/sdo/internal/llm/middleware/retry"
	"github.com/forgeworks/sdo/internal/llm/middleware/timeout"
	"github.com/forgeworks/sdo/internal/llm/middleware/validation"
	"github.com/forgeworks/sdo/internal/llm/providers"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/metrics"
)

// Factory builds fully-wired Client instances for each configured
// model, ported from pkg/agent/factory.go's LLMClientFactory: one
// circuit breaker per provider, a shared limiter, and the same
// validation -> metrics -> circuit -> retry -> ratelimit -> timeout
// middleware order.
type Factory struct {
	cfg             config.Config
	limiter         *limiter.Limiter
	metrics         *metrics.Registry
	circuitBreakers map[config.Provider]circuit.Breaker
}

// NewFactory builds a Factory from process configuration.
func NewFactory(cfg *config.Config, lim *limiter.Limiter, reg *metrics.Registry) *Factory {
	breakers := make(map[config.Provider]circuit.Breaker, 4)
	for _, p := range []config.Provider{config.ProviderAnthropic, config.ProviderOpenAI, config.ProviderGoogle, config.ProviderOllama} {
		breakers[p] = circuit.New(circuit.Config{
			FailureThreshold: cfg.Resilience.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.Resilience.CircuitBreaker.SuccessThreshold,
			Timeout:          cfg.Resilience.CircuitBreaker.Timeout,
		})
	}
	return &Factory{cfg: *cfg, limiter: lim, metrics: reg, circuitBreakers: breakers}
}

// CreateClient builds the fully-wrapped client for modelName.
func (f *Factory) CreateClient(modelName string) (Client, error) {
	model, ok := f.cfg.Models[modelName]
	if !ok {
		return nil, fmt.Errorf("llm factory: model %q not configured", modelName)
	}

	apiKey, err := config.GetAPIKey(model.Provider)
	if err != nil {
		return nil, fmt.Errorf("llm factory: %w", err)
	}

	var raw Client
	switch model.Provider {
	case config.ProviderAnthropic:
		raw = providers.NewAnthropicClient(apiKey, modelName)
	case config.ProviderOpenAI:
		raw = providers.NewOpenAIClient(apiKey, modelName)
	case config.ProviderGoogle:
		raw = providers.NewGoogleClient(apiKey, modelName)
	case config.ProviderOllama:
		raw = providers.NewOllamaClient(apiKey, modelName)
	default:
		return nil, fmt.Errorf("llm factory: unsupported provider %q", model.Provider)
	}

	breaker := f.circuitBreakers[model.Provider]

	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   f.cfg.Resilience.Retry.MaxAttempts,
		InitialDelay:  f.cfg.Resilience.Retry.InitialDelay,
		MaxDelay:      f.cfg.Resilience.Retry.MaxDelay,
		BackoffFactor: f.cfg.Resilience.Retry.BackoffFactor,
		Jitter:        f.cfg.Resilience.Retry.Jitter,
	}, nil)

	validator := validation.NewEmptyResponseValidator()

	costEstimator := func(m string, inputTokens, outputTokens int) float64 {
		cfgModel := f.cfg.Models[m]
		return (float64(inputTokens+outputTokens) / 1_000_000) * cfgModel.CPM
	}

	client := Chain(raw,
		validator.Middleware(),
		metricsmw.Middleware(f.metrics, costEstimator),
		circuit.Middleware(breaker),
		retry.Middleware(retryPolicy, logx.NewLogger("llm-retry")),
		ratelimit.Middleware(f.limiter),
		timeout.Middleware(f.cfg.Resilience.Timeout),
	)

	return client, nil
}
