package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/logx"
)

// Middleware retries a failed call according to policy, with
// exponential backoff between attempts. Once attempts are exhausted on
// a retryable error it wraps the last error as errs.KindTimeout so
// downstream callers can distinguish "gave up retrying" from the
// underlying transient cause.
func Middleware(policy *Policy, logger *logx.Logger) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			var lastErr error

			for attempt := 1; attempt <= policy.Config.MaxAttempts; attempt++ {
				if attempt > 1 {
					delay := policy.CalculateDelay(attempt)
					logger.Warn("llm retry %d/%d (backoff %v): %v", attempt, policy.Config.MaxAttempts, delay, lastErr)
					if delay > 0 {
						select {
						case <-ctx.Done():
							return llm.Response{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
						case <-time.After(delay):
						}
					}
				}

				resp, err := next.Complete(ctx, req)
				if err == nil {
					return resp, nil
				}
				lastErr = err

				if !policy.ShouldRetry(err) {
					break
				}
				if attempt >= policy.Config.MaxAttempts {
					break
				}
			}

			if policy.ShouldRetry(lastErr) {
				logger.Error("llm retries exhausted (%d attempts): %v", policy.Config.MaxAttempts, lastErr)
				return llm.Response{}, errs.Wrap(errs.KindTimeout, fmt.Errorf("exhausted %d attempts: %w", policy.Config.MaxAttempts, lastErr))
			}
			return llm.Response{}, lastErr
		})
	}
}
