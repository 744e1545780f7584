// Package incidents reports server ready->error transitions to the
// external CRUD layer's incident endpoint (spec.md §6 "/api/incidents"),
// so operators get a durable record independent of the event log.
package incidents

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeworks/sdo/internal/crudclient"
)

// Incident is one reported server failure.
type Incident struct {
	ServerHandle string    `json:"server_handle"`
	Reason       string    `json:"reason"`
	DetectedAt   time.Time `json:"detected_at"`
	JobID        string    `json:"job_id,omitempty"`
}

// Reporter records incidents and flips the affected server to "error"
// status so the resource-selection tools (find_suitable_server) stop
// picking it.
type Reporter struct {
	crud *crudclient.Client
}

// New builds a Reporter over an existing crudclient.
func New(crud *crudclient.Client) *Reporter {
	return &Reporter{crud: crud}
}

// Report records an incident for serverHandle and marks the server as
// errored (spec.md §6 "server ready -> error transitions").
func (r *Reporter) Report(ctx context.Context, serverHandle, reason, jobID string) error {
	if err := r.crud.SetServerStatus(ctx, serverHandle, crudclient.ServerStatusError); err != nil {
		return fmt.Errorf("incidents: failed to mark server %s as errored: %w", serverHandle, err)
	}
	incident := Incident{ServerHandle: serverHandle, Reason: reason, DetectedAt: time.Now().UTC(), JobID: jobID}
	if err := r.postIncident(ctx, incident); err != nil {
		return fmt.Errorf("incidents: failed to record incident for server %s: %w", serverHandle, err)
	}
	return nil
}

func (r *Reporter) postIncident(ctx context.Context, incident Incident) error {
	return r.crud.PostIncident(ctx, incident.ServerHandle, incident.Reason, incident.JobID, incident.DetectedAt)
}
