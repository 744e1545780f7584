// Package timeout bounds every LLM call to a per-request deadline,
// ported from pkg/agent/middleware/resilience/timeout.
package timeout

import (
	"context"
	"time"

	"github.com/forgeworks/sdo/internal/llm"
)

// Middleware applies duration as a per-call context deadline.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()
			return next.Complete(timeoutCtx, req)
		})
	}
}
