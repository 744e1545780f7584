package deploy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// VerifyDeploymentNode builds the verify_deployment graph node (spec.md
// §4.6): probes the deployed service's health endpoint before declaring
// success.
func VerifyDeploymentNode(httpClient *http.Client, probeTimeout time.Duration) graph.Node {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: probeTimeout}
	}
	return graph.Node{
		Name: "verify_deployment",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			serverIP := state.AllocatedResources["server_ip"]
			port := state.AllocatedResources["port"]
			if serverIP == "" || port == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "verify_deployment: no server ip/port recorded on thread %s", state.ThreadID)
			}

			url := fmt.Sprintf("http://%s:%s/", serverIP, port)
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
			if err != nil {
				return proto.Update{}, fmt.Errorf("verify_deployment: failed to build probe request: %w", err)
			}

			resp, err := httpClient.Do(req)
			now := time.Now().UTC()
			if err != nil || resp.StatusCode >= 500 {
				if err == nil {
					resp.Body.Close()
				}
				status := proto.DeployFailed
				msg := "deployment health probe failed"
				if err != nil {
					msg = err.Error()
				}
				return proto.Update{DeployStatus: &status, DeployError: &msg, DeployFinishedAt: &now}, nil
			}
			resp.Body.Close()

			status := proto.DeploySuccess
			deployedURL := url
			return proto.Update{DeployStatus: &status, DeployedURL: &deployedURL, DeployFinishedAt: &now}, nil
		},
		Next: func(state *proto.GraphState) string {
			if state.DeployStatus == proto.DeployFailed {
				return "handle_failure"
			}
			return graph.End
		},
		Edges:     []string{graph.End, "handle_failure"},
		OnFailure: "handle_failure",
	}
}
