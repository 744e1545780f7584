// Package ratelimit wraps internal/limiter as an internal/llm
// middleware stage, playing the role of the teacher's
// pkg/agent/middleware/resilience/ratelimit package but delegating the
// actual token-bucket/connection-slot bookkeeping to
// internal/limiter.Limiter instead of a parallel implementation.
package ratelimit

import (
	"context"

	"github.com/forgeworks/sdo/internal/limiter"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/llm/tokencount"
)

// estimatedTokens is a pre-call token estimate used to reserve
// rate-limit tokens before the real usage is known from the response.
// The exact usage providers report in Response.InputTokens/OutputTokens
// is not fed back to the limiter.
func estimatedTokens(req llm.Request) int {
	counter := tokencount.Shared()
	total := counter.Count(req.System)
	for _, m := range req.Messages {
		total += counter.Count(m.Text)
	}
	if req.MaxTokens > 0 {
		total += req.MaxTokens
	}
	return total
}

// Middleware reserves a rate-limit token budget and a concurrency slot
// for req.Model before delegating, releasing the slot when the call
// returns.
func Middleware(lim *limiter.Limiter) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			if err := lim.ReserveTokens(req.Model, estimatedTokens(req)); err != nil {
				return llm.Response{}, err
			}
			if err := lim.AcquireConn(req.Model); err != nil {
				return llm.Response{}, err
			}
			defer func() { _ = lim.ReleaseConn(req.Model) }()

			return next.Complete(ctx, req)
		})
	}
}
