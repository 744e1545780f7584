package crudclient

import (
	"context"
	"fmt"
	"time"
)

// PostIncident records an incident report against /api/incidents
// (spec.md §6).
func (c *Client) PostIncident(ctx context.Context, serverHandle, reason, jobID string, detectedAt time.Time) error {
	body := map[string]any{
		"server_handle": serverHandle,
		"reason":        reason,
		"job_id":        jobID,
		"detected_at":   detectedAt,
	}
	if err := c.do(ctx, "POST", "/api/incidents", body, nil); err != nil {
		return fmt.Errorf("crudclient: post incident for server %s: %w", serverHandle, err)
	}
	return nil
}
