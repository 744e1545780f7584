package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/redisx"
)

// SecretSetter configures a CI secret on a project's repository.
// engineering.GitHubRepoCreator satisfies this.
type SecretSetter interface {
	SetSecret(ctx context.Context, owner, repo, name, value string) error
}

// playbookRequest is pushed to ansible:deploy:queue.
type playbookRequest struct {
	RequestID    string            `json:"request_id"`
	ProjectID    string            `json:"project_id"`
	ServerHandle string            `json:"server_handle"`
	Port         int               `json:"port"`
	EnvValues    map[string]string `json:"env_values"`
}

// playbookResult is published on deploy:result:{request_id}.
type playbookResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const playbookQueueKey = "ansible:deploy:queue"

func resultChannel(requestID string) string { return "deploy:result:" + requestID }

// DeployerNode builds the deployer graph node (spec.md §4.6):
// delegates to the external playbook runner, waits for its result, then
// records the service deployment and configures CI secrets.
func DeployerNode(rdb *redisx.Client, crud *crudclient.Client, repos SecretSetter, resultTimeout time.Duration) graph.Node {
	return graph.Node{
		Name: "deployer",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			serverHandle := state.AllocatedResources["server_handle"]
			portStr := state.AllocatedResources["port"]
			if serverHandle == "" || portStr == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "deployer: no server/port allocation recorded on thread %s", state.ThreadID)
			}

			requestID := uuid.NewString()
			req := playbookRequest{
				RequestID:    requestID,
				ProjectID:    state.CurrentProject,
				ServerHandle: serverHandle,
				Port:         atoiOrZero(portStr),
				EnvValues:    resolvedValues(state.AllocatedResources),
			}
			data, err := json.Marshal(req)
			if err != nil {
				return proto.Update{}, fmt.Errorf("deployer: failed to marshal playbook request: %w", err)
			}

			sub := rdb.Raw().Subscribe(ctx, resultChannel(requestID))
			defer sub.Close()

			if err := rdb.Raw().RPush(ctx, playbookQueueKey, data).Err(); err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("deployer: failed to enqueue playbook request: %w", err))
			}

			result, err := waitForResult(ctx, sub, resultTimeout)
			if err != nil {
				return proto.Update{}, err
			}
			if !result.Success {
				deployErr := result.Error
				status := proto.DeployFailed
				return proto.Update{DeployStatus: &status, DeployError: &deployErr}, nil
			}

			if err := crud.UpdateProject(ctx, state.CurrentProject, map[string]any{
				"deployed_server": serverHandle,
				"deployed_port":   req.Port,
			}); err != nil {
				return proto.Update{}, fmt.Errorf("deployer: failed to record service deployment: %w", err)
			}

			if owner, repo, ok := splitGitHubRepo(state.RepositoryInfo["repository_url"]); ok && repos != nil {
				for name, value := range req.EnvValues {
					if err := repos.SetSecret(ctx, owner, repo, name, value); err != nil {
						return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("deployer: failed to configure CI secret %s on %s/%s: %w", name, owner, repo, err))
					}
				}
			}

			return proto.Update{}, nil
		},
		Next: func(state *proto.GraphState) string {
			if state.DeployStatus == proto.DeployFailed {
				return "handle_failure"
			}
			return "verify_deployment"
		},
		Edges:     []string{"verify_deployment", "handle_failure"},
		OnFailure: "handle_failure",
	}
}

func waitForResult(ctx context.Context, sub *redis.PubSub, timeout time.Duration) (playbookResult, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := sub.ReceiveMessage(waitCtx)
	if err != nil {
		return playbookResult{}, errs.Wrap(errs.KindTimeout, fmt.Errorf("deployer: timed out waiting for playbook result: %w", err))
	}

	var result playbookResult
	if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
		return playbookResult{}, fmt.Errorf("deployer: failed to parse playbook result: %w", err)
	}
	return result, nil
}

// splitGitHubRepo extracts owner/repo from a GitHub HTTPS or SSH clone
// URL (e.g. "https://github.com/owner/repo.git" or
// "git@github.com:owner/repo.git"), returning ok=false for anything
// that doesn't parse into exactly owner and repo segments.
func splitGitHubRepo(repositoryURL string) (owner, repo string, ok bool) {
	path := repositoryURL
	if strings.Contains(path, "://") {
		u, err := url.Parse(repositoryURL)
		if err != nil {
			return "", "", false
		}
		path = u.Path
	} else if idx := strings.Index(path, ":"); idx >= 0 && strings.Contains(path, "@") {
		path = path[idx+1:]
	}
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
