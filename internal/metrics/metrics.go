// Package metrics registers the orchestrator's Prometheus instruments
// and exposes narrow recording helpers to each component, grounded on
// pkg/metrics/query.go and the metrics middleware stage in
// pkg/agent/factory.go's chain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every instrument the orchestrator emits.
type Registry struct {
	LLMRequestsTotal   *prometheus.CounterVec
	LLMTokensTotal     *prometheus.CounterVec
	LLMCostTotal       *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	ToolCallsTotal *prometheus.CounterVec

	JobQueueDepth      *prometheus.GaugeVec
	JobProcessDuration *prometheus.HistogramVec

	DeployStageDuration *prometheus.HistogramVec
	DeployOutcomeTotal  *prometheus.CounterVec
}

// New registers every instrument against prometheus.DefaultRegisterer
// via promauto, matching the teacher's NewPrometheusRecorder pattern.
func New() *Registry {
	return &Registry{
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdo_llm_requests_total",
			Help: "Total LLM completion calls by model and outcome.",
		}, []string{"model", "status"}),
		LLMTokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdo_llm_tokens_total",
			Help: "Total tokens consumed by model and direction (input/output).",
		}, []string{"model", "direction"}),
		LLMCostTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdo_llm_cost_usd_total",
			Help: "Total estimated LLM spend in USD by model.",
		}, []string{"model"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdo_llm_request_duration_seconds",
			Help:    "LLM completion call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		ToolCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdo_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		}, []string{"tool", "status"}),
		JobQueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sdo_jobqueue_depth",
			Help: "Pending entries per job-queue stream.",
		}, []string{"stream"}),
		JobProcessDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdo_jobqueue_process_duration_seconds",
			Help:    "Time to process one dequeued job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stream"}),
		DeployStageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdo_deploy_stage_duration_seconds",
			Help:    "Deployment sub-pipeline stage latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		DeployOutcomeTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdo_deploy_outcome_total",
			Help: "Deployment pipeline outcomes by final status.",
		}, []string{"status"}),
	}
}

// ObserveLLMCall records one completed (or failed) LLM call.
func (r *Registry) ObserveLLMCall(model string, success bool, inputTokens, outputTokens int, costUSD float64, d time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	r.LLMRequestsTotal.WithLabelValues(model, status).Inc()
	r.LLMTokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	r.LLMTokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	r.LLMCostTotal.WithLabelValues(model).Add(costUSD)
	r.LLMRequestDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveToolCall records the outcome of one tool invocation.
func (r *Registry) ObserveToolCall(tool string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	r.ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

// SetQueueDepth records the current depth of a job-queue stream.
func (r *Registry) SetQueueDepth(stream string, depth int) {
	r.JobQueueDepth.WithLabelValues(stream).Set(float64(depth))
}

// ObserveJobProcessed records how long it took to process one job.
func (r *Registry) ObserveJobProcessed(stream string, d time.Duration) {
	r.JobProcessDuration.WithLabelValues(stream).Observe(d.Seconds())
}

// ObserveDeployStage records one deployment pipeline stage's latency.
func (r *Registry) ObserveDeployStage(stage string, d time.Duration) {
	r.DeployStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveDeployOutcome records the pipeline's final status.
func (r *Registry) ObserveDeployOutcome(status string) {
	r.DeployOutcomeTotal.WithLabelValues(status).Inc()
}
