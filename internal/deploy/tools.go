package deploy

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/coordinator"
	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/jobqueue"
	"github.com/forgeworks/sdo/internal/persistence"
)

// basePort and maxPortAttempts bound allocate_port's own search: spec.md
// §5 only requires retrying on a constraint violation, not a specific
// range, so this picks the lowest free port from a conventional
// application port band.
const (
	basePort        = 8080
	maxPortAttempts = 64
)

// RegisterCapability wires the deploy capability's tools (spec.md §4.6
// "Coordinator-exposed tools") into reg.
func RegisterCapability(reg *coordinator.Registry, crud *crudclient.Client, dispatcher *jobqueue.Dispatcher, checkpoints *persistence.CheckpointStore) {
	reg.RegisterCapability(coordinator.CapabilityDeploy,
		"Provision a server and deploy a project's service.",
		checkDeployReadinessTool(crud),
		findSuitableServerTool(crud),
		allocatePortTool(crud),
		triggerDeployTool(crud, dispatcher),
		getDeployStatusTool(checkpoints),
	)
}

func checkDeployReadinessTool(crud *crudclient.Client) coordinator.Tool {
	return coordinator.NewToolFunc(
		"check_deploy_readiness",
		"Check whether a project has everything trigger_deploy needs (repository, allocated server/port) before queuing a deploy.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_id": map[string]any{"type": "string"},
			},
			"required": []string{"project_id"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			projectID, _ := args["project_id"].(string)
			if projectID == "" {
				return nil, errs.New(errs.KindInvariant, "check_deploy_readiness: project_id is required")
			}
			project, err := crud.GetProject(ctx, projectID)
			if err != nil {
				return nil, fmt.Errorf("check_deploy_readiness: %w", err)
			}

			var missing []string
			if project.RepositoryURL == "" {
				missing = append(missing, "repository")
			}
			if project.DeployedServer == "" || project.DeployedPort == 0 {
				missing = append(missing, "allocated_resources")
			}

			return map[string]any{"ready": len(missing) == 0, "missing": missing}, nil
		},
	)
}

func findSuitableServerTool(crud *crudclient.Client) coordinator.Tool {
	return coordinator.NewToolFunc(
		"find_suitable_server",
		"Find the managed server with the most free RAM that has at least the requested amount, counting servers already in use.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ram_mb": map[string]any{"type": "integer"},
			},
			"required": []string{"ram_mb"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			ramMB, err := intArg(args, "ram_mb")
			if err != nil {
				return nil, err
			}
			servers, err := crud.ListServers(ctx)
			if err != nil {
				return nil, errs.Wrap(errs.KindTransient, fmt.Errorf("find_suitable_server: %w", err))
			}
			var best *crudclient.Server
			for i, s := range servers {
				if s.Status != crudclient.ServerStatusReady && s.Status != crudclient.ServerStatusInUse {
					continue
				}
				if s.AvailableRAMMB < ramMB {
					continue
				}
				if best == nil || s.AvailableRAMMB > best.AvailableRAMMB {
					best = &servers[i]
				}
			}
			if best == nil {
				return map[string]any{"found": false}, nil
			}
			return map[string]any{
				"found":            true,
				"handle":           best.Handle,
				"ip":               best.IP,
				"available_ram_mb": best.AvailableRAMMB,
			}, nil
		},
	)
}

func allocatePortTool(crud *crudclient.Client) coordinator.Tool {
	return coordinator.NewToolFunc(
		"allocate_port",
		"Reserve an unused port on a server for a project. Picks the port itself and retries on conflict.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"server_handle": map[string]any{"type": "string"},
				"project_id":    map[string]any{"type": "string"},
			},
			"required": []string{"server_handle", "project_id"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			serverHandle, _ := args["server_handle"].(string)
			projectID, _ := args["project_id"].(string)
			if serverHandle == "" || projectID == "" {
				return nil, errs.New(errs.KindInvariant, "allocate_port: server_handle and project_id are required")
			}

			var lastErr error
			for port := basePort; port < basePort+maxPortAttempts; port++ {
				alloc, err := crud.AllocatePort(ctx, serverHandle, projectID, port)
				if err == nil {
					return map[string]any{"allocation": alloc, "port": alloc.Port}, nil
				}
				if !errs.IsUserActionable(err) {
					return nil, err
				}
				lastErr = err // port taken; retry with the next one
			}
			return nil, errs.Wrap(errs.KindUserActionable, fmt.Errorf("allocate_port: no free port found on %s after %d attempts: %w", serverHandle, maxPortAttempts, lastErr))
		},
	)
}

func triggerDeployTool(crud *crudclient.Client, dispatcher *jobqueue.Dispatcher) coordinator.Tool {
	return coordinator.NewToolFunc(
		"trigger_deploy",
		"Enqueue a deployment run for a project. Runs as a durable background job; progress is reported back over chat.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project_id": map[string]any{"type": "string"},
			},
			"required": []string{"project_id"},
		},
		func(ctx context.Context, rc *coordinator.RunContext, args map[string]any) (map[string]any, error) {
			projectID, _ := args["project_id"].(string)
			if projectID == "" {
				return nil, errs.New(errs.KindInvariant, "trigger_deploy: project_id is required")
			}
			project, err := crud.GetProject(ctx, projectID)
			if err != nil {
				return nil, fmt.Errorf("trigger_deploy: %w", err)
			}

			jobID, err := dispatcher.Enqueue(ctx, jobqueue.KindDeploy, project.Slug, fmt.Sprint(rc.UserID), rc.CorrelationID, map[string]any{
				"project_id": projectID,
			})
			if err != nil {
				return nil, fmt.Errorf("trigger_deploy: %w", err)
			}
			return map[string]any{"job_id": jobID, "thread_id": jobID, "status": "queued"}, nil
		},
	)
}

func getDeployStatusTool(checkpoints *persistence.CheckpointStore) coordinator.Tool {
	return coordinator.NewToolFunc(
		"get_deploy_status",
		"Poll a deploy job's progress by job_id, returning its current deploy status and deployed_url once available.",
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
				return nil, errs.New(errs.KindInvariant, "get_deploy_status: job_id is required")
			}
			_, state, found, err := jobqueue.ReadCheckpoint(ctx, checkpoints, jobID)
			if err != nil {
				return nil, errs.Wrap(errs.KindTransient, fmt.Errorf("get_deploy_status: %w", err))
			}
			if !found {
				return map[string]any{"found": false, "status": "queued"}, nil
			}
			return map[string]any{
				"found":        true,
				"status":       string(state.DeployStatus),
				"deployed_url": state.DeployedURL,
			}, nil
		},
	)
}

func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, errs.New(errs.KindInvariant, "%s: must be an integer", key)
	}
}
