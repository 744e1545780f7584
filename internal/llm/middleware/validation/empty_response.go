// Package validation rejects empty model responses, retrying once with
// an added guidance message before giving up — ported from the
// teacher's pkg/agent/middleware/validation/empty_response.go, narrowed
// from its architect/coder agent-type split to a single rule: every
// agent in this system (Coordinator, Classifier, EnvAnalyzer,
// Architect) must return either text or a tool call.
package validation

import (
	"context"
	"strings"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/proto"
)

const maxEmptyAttempts = 2

// EmptyResponseValidator validates that a completion produced usable
// output before it reaches the caller.
type EmptyResponseValidator struct{}

// NewEmptyResponseValidator builds a validator.
func NewEmptyResponseValidator() *EmptyResponseValidator {
	return &EmptyResponseValidator{}
}

// Middleware returns the validation stage.
func (v *EmptyResponseValidator) Middleware() llm.Middleware {
	logger := logx.NewLogger("validation")
	return func(next llm.Client) llm.Client {
		return llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
			for attempt := 1; attempt <= maxEmptyAttempts; attempt++ {
				resp, err := next.Complete(ctx, req)
				if err != nil {
					return resp, err
				}
				if !isEmpty(resp) {
					return resp, nil
				}

				logger.Warn("empty response detected (attempt %d/%d)", attempt, maxEmptyAttempts)
				if attempt == maxEmptyAttempts {
					break
				}
				req.Messages = append(req.Messages, proto.NewUserMessage(
					"Your previous response had no text and no tool call. Respond with either a direct answer or a tool call."))
			}
			return llm.Response{}, errs.New(errs.KindInvariant, "llm returned an empty response after %d attempts", maxEmptyAttempts)
		})
	}
}

func isEmpty(resp llm.Response) bool {
	return len(resp.ToolCalls) == 0 && strings.TrimSpace(resp.Text) == ""
}
