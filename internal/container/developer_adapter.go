package container

import (
	"context"
	"fmt"
)

// DeveloperAdapter exposes a Manager as the Engineering Sub-pipeline's
// engineering.DeveloperAgent (spec.md §4.7 "developer (agent
// container)"): one lazily created container, re-used across the
// bounded rework loop, driven through SendMessage on each call — the
// only path the Manager allows between orchestrator and agent (§4.1).
// Deliberately defined here rather than in internal/engineering so that
// package stays free of a container import; Go's structural interfaces
// let this satisfy engineering.DeveloperAgent without either package
// naming the other.
type DeveloperAdapter struct {
	mgr     *Manager
	cfg     Config
	agentID string
}

// NewDeveloperAdapter builds an adapter that lazily creates (on first
// RunTask) and then reuses one developer container per adapter
// instance — callers construct one per engineering sub-graph run so the
// container, and its session context, persists across rework iterations.
func NewDeveloperAdapter(mgr *Manager, cfg Config) *DeveloperAdapter {
	return &DeveloperAdapter{mgr: mgr, cfg: cfg}
}

// RunTask hands the developer agent its instructions plus any review
// feedback from a prior failed test run, and returns its summary of the
// work performed.
func (a *DeveloperAdapter) RunTask(ctx context.Context, workdir, instructions, reviewFeedback string) (string, error) {
	if a.agentID == "" {
		id, err := a.mgr.Create(ctx, a.cfg)
		if err != nil {
			return "", fmt.Errorf("container: failed to provision developer agent: %w", err)
		}
		a.agentID = id
	}

	prompt := instructions
	if reviewFeedback != "" {
		prompt = fmt.Sprintf("%s\n\nPrevious test run failed with:\n%s\n\nAddress the failures above.", instructions, reviewFeedback)
	}

	result, err := a.mgr.SendMessage(ctx, a.agentID, prompt)
	if err != nil {
		return "", err
	}
	return result.Response, nil
}

// Cleanup tears down the developer container once the engineering
// sub-graph reaches a terminal state (done/blocked).
func (a *DeveloperAdapter) Cleanup(ctx context.Context) error {
	if a.agentID == "" {
		return nil
	}
	return a.mgr.Delete(ctx, a.agentID)
}
