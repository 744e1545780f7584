package circuit

import (
	"context"

	"github.com/forgeworks/sdo/internal/llm"
)

// Middleware rejects calls immediately while the breaker is open,
// otherwise delegates and records the outcome.
func Middleware(breaker Breaker) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			if !breaker.Allow() {
				return llm.Response{}, &Error{State: breaker.GetState()}
			}
			resp, err := next.Complete(ctx, req)
			breaker.Record(err == nil)
			return resp, err
		})
	}
}
