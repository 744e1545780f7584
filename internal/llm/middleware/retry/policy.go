// Package retry implements exponential-backoff retry for internal/llm,
// ported from pkg/agent/middleware/resilience/retry, with the error
// classifier swapped from the teacher's llmerrors type to this
// module's internal/errs taxonomy (spec.md §7).
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
)

// Config tunes backoff behavior.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// Classifier decides whether err is worth retrying.
type Classifier func(error) bool

// ShouldRetry is the default classifier: blocklist approach using the
// errs taxonomy — config/user-actionable/invariant errors never
// benefit from a retry, everything else (including unclassified
// errors, which default to errs.KindTransient) does.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch errs.KindOf(err) {
	case errs.KindConfig, errs.KindUserActionable, errs.KindInvariant:
		return false
	default:
		return true
	}
}

// Policy encapsulates retry configuration and logic.
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy builds a Policy, defaulting to ShouldRetry when classifier is nil.
func NewPolicy(cfg Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	return &Policy{Config: cfg, Classifier: classifier}
}

// CalculateDelay returns the backoff delay before the given attempt
// number (1-indexed; attempt 1 is the initial try and has no delay).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))
	if delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}
	if p.Config.Jitter && delay > 0 {
		jitter := time.Duration((rand.Float64()*2 - 1) * 0.1 * float64(delay))
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}
	return delay
}

// ShouldRetry reports whether err should be retried under this policy.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}
