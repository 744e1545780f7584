// Package metricsmw records LLM call outcomes into internal/metrics,
// playing the role of the teacher's
// pkg/agent/middleware/metrics.Middleware stage.
package metricsmw

import (
	"context"
	"time"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/metrics"
)

// CostEstimator computes the USD cost of one call from its token usage.
type CostEstimator func(model string, inputTokens, outputTokens int) float64

// Middleware wraps next, recording latency, token and cost metrics for
// every call.
func Middleware(reg *metrics.Registry, estimate CostEstimator) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			start := time.Now()
			resp, err := next.Complete(ctx, req)
			elapsed := time.Since(start)

			cost := 0.0
			if estimate != nil {
				cost = estimate(req.Model, resp.InputTokens, resp.OutputTokens)
			}
			reg.ObserveLLMCall(req.Model, err == nil, resp.InputTokens, resp.OutputTokens, cost, elapsed)

			return resp, err
		})
	}
}
