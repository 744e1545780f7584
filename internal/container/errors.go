package container

import (
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
)

// errInvalidConfig reports an unknown agent type or unknown capability
// (spec.md §4.1 "Fails with InvalidConfig on unknown agent type or
// unknown capability").
func errInvalidConfig(format string, args ...any) error {
	return errs.New(errs.KindConfig, "container: invalid config: "+format, args...)
}

// errNotFound reports an operation against an agent id the Manager does
// not (or no longer) know about.
func errNotFound(agentID string) error {
	return errs.New(errs.KindInvariant, "container: agent %s not found", agentID)
}

// errTimeout reports a send_message call exceeding its per-call timeout.
// Manager.SendMessage bounds each call by the container's timeout_minutes
// (default 10 minutes); there is no separate, shorter send_message default.
func errTimeout(agentID string, d fmt.Stringer) error {
	return errs.New(errs.KindTimeout, "container: agent %s send_message timed out after %s", agentID, d)
}

// errAgentError wraps a failure surfaced by the agent process itself
// (non-zero exit, malformed structured reply, ...).
func errAgentError(agentID string, err error) error {
	return errs.Wrap(errs.KindTransient, fmt.Errorf("container: agent %s: %w", agentID, err))
}
