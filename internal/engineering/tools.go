package engineering

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/coordinator"
	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/jobqueue"
	"github.com/forgeworks/sdo/internal/persistence"
)

// RegisterCapability wires the engineering capability's tools (spec.md
// §4.7 "trigger_engineering(project_id, task_description)") into reg.
func RegisterCapability(reg *coordinator.Registry, crud *crudclient.Client, dispatcher *jobqueue.Dispatcher, checkpoints *persistence.CheckpointStore) {
	reg.RegisterCapability(coordinator.CapabilityEngineering,
		"Implement a task against a project's codebase via the engineering sub-pipeline.",
		triggerEngineeringTool(crud, dispatcher),
		getEngineeringStatusTool(checkpoints),
	)
}

func triggerEngineeringTool(crud *crudclient.Client, dispatcher *jobqueue.Dispatcher) coordinator.Tool {
	return coordinator.NewToolFunc(
		"trigger_engineering",
		"Enqueue an engineering run implementing task_description against project_id's codebase.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_id":       map[string]any{"type": "string"},
				"task_description": map[string]any{"type": "string"},
			},
			"required": []string{"project_id", "task_description"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			projectID, _ := args["project_id"].(string)
			taskDescription, _ := args["task_description"].(string)
			if projectID == "" || taskDescription == "" {
				return nil, errs.New(errs.KindInvariant, "trigger_engineering: project_id and task_description are required")
			}
			project, err := crud.GetProject(ctx, projectID)
			if err != nil {
				return nil, fmt.Errorf("trigger_engineering: %w", err)
			}

			jobID, err := dispatcher.Enqueue(ctx, jobqueue.KindEngineering, project.Slug, fmt.Sprint(rc.UserID), rc.CorrelationID, map[string]any{
				"project_id":       projectID,
				"task_description": taskDescription,
			})
			if err != nil {
				return nil, fmt.Errorf("trigger_engineering: %w", err)
			}
			return map[string]any{"job_id": jobID, "thread_id": jobID, "status": "queued"}, nil
		},
	)
}

func getEngineeringStatusTool(checkpoints *persistence.CheckpointStore) coordinator.Tool {
	return coordinator.NewToolFunc(
		"get_engineering_status",
		"Poll an engineering job's progress by job_id, returning its current engineering_status and review_feedback once available.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"job_id": map[string]any{"type": "string"},
			},
			"required": []string{"job_id"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			jobID, _ := args["job_id"].(string)
			if jobID == "" {
				return nil, errs.New(errs.KindInvariant, "get_engineering_status: job_id is required")
			}
			_, state, found, err := jobqueue.ReadCheckpoint(ctx, checkpoints, jobID)
			if err != nil {
				return nil, errs.Wrap(errs.KindTransient, fmt.Errorf("get_engineering_status: %w", err))
			}
			if !found {
				return map[string]any{"found": false, "status": "queued"}, nil
			}
			return map[string]any{
				"found":           true,
				"status":          string(state.EngineeringStatus),
				"review_feedback": state.ReviewFeedback,
				"needs_approval":  state.NeedsHumanApproval,
			}, nil
		},
	)
}
