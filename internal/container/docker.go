package container

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/forgeworks/sdo/internal/logx"
)

// DockerExec implements ContainerExec over the github.com/docker/docker
// SDK client, the idiomatic way kdlbs-kandev's internal/agent/docker
// wraps it, generalized from the teacher's own docker-CLI shell-outs
// (pkg/exec/docker_long_running.go) to a typed client now that the SDK
// dependency is already part of this module's stack.
type DockerExec struct {
	cli     *client.Client
	logger  *logx.Logger
	network string
	imageOf map[string]string // ImageCacheKey -> built image tag, in-process only
}

// NewDockerExec connects to the local Docker daemon using API version
// negotiation, matching the teacher's auto-detection of the available
// container runtime.
func NewDockerExec(isolatedNetwork string) (*DockerExec, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("container: failed to create docker client: %w", err)
	}
	return &DockerExec{
		cli:     cli,
		logger:  logx.NewLogger("container.docker"),
		network: isolatedNetwork,
		imageOf: make(map[string]string),
	}, nil
}

// Close releases the underlying connection pool.
func (d *DockerExec) Close() error { return d.cli.Close() }

func (d *DockerExec) resolveImage(ctx context.Context, cfg Config, installCmds []string) (string, error) {
	key := cfg.ImageCacheKey()
	if tag, ok := d.imageOf[key]; ok {
		return tag, nil
	}
	tag := fmt.Sprintf("sdo-agent:%s", key)
	if _, _, err := d.cli.ImageInspectWithRaw(ctx, tag); err == nil {
		d.imageOf[key] = tag
		return tag, nil
	}
	// Base image pulled, then bootstrap installed on first container boot
	// rather than via a real docker build — installCmds are re-run
	// idempotently by the Factory's own install-command generation, so a
	// cache miss here only costs one extra apt/npm run, not a broken state.
	base := "sdo-agent-base:latest"
	reader, err := d.cli.ImagePull(ctx, base, types.ImagePullOptions{})
	if err != nil {
		return "", fmt.Errorf("container: failed to pull base image %s: %w", base, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", fmt.Errorf("container: error reading image pull output: %w", err)
	}
	d.imageOf[key] = base
	_ = installCmds // applied by the caller via Exec once the container is running
	return base, nil
}

// Create starts an isolated container for cfg and runs installCmds
// inside it before returning its id (§4.1 "builds or reuses a per-config
// image ... injects agent-specific install and bootstrap commands").
func (d *DockerExec) Create(ctx context.Context, name string, cfg Config, installCmds []string, invokeCmd []string) (string, error) {
	img, err := d.resolveImage(ctx, cfg, installCmds)
	if err != nil {
		return "", err
	}

	env := make([]string, 0, len(cfg.EnvVars))
	for k, v := range cfg.EnvVars {
		env = append(env, k+"="+v)
	}

	netMode := container.NetworkMode("none")
	if cfg.HasInternet {
		netMode = container.NetworkMode(d.network)
	}

	exposed, bindings, err := previewPortBindings(cfg.PreviewPorts)
	if err != nil {
		return "", err
	}

	containerCfg := &container.Config{
		Image:        img,
		Cmd:          []string{"sleep", "infinity"}, // idle until send_message execs the real invocation
		Env:          env,
		Labels:       map[string]string{"sdo.agent": string(cfg.Agent)},
		WorkingDir:   "/workspace",
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		NetworkMode:  netMode,
		AutoRemove:   false,
		PortBindings: bindings,
	}

	resp, err := d.cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return "", fmt.Errorf("container: failed to create container %s: %w", name, err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("container: failed to start container %s: %w", name, err)
	}

	for _, cmd := range installCmds {
		if _, exitCode, err := d.Exec(ctx, resp.ID, []string{"sh", "-c", cmd}, 5*time.Minute); err != nil {
			return "", fmt.Errorf("container: install command %q failed: %w", cmd, err)
		} else if exitCode != 0 {
			return "", fmt.Errorf("container: install command %q exited %d", cmd, exitCode)
		}
	}
	_ = invokeCmd // stored by the Factory, re-issued per send_message via Exec
	return resp.ID, nil
}

// previewPortBindings builds the exposed-port set and loopback-only host
// bindings for cfg.PreviewPorts, the way Aureuma-si's codex tool parses
// user-supplied port flags into nat.PortSet/nat.PortBinding pairs.
func previewPortBindings(ports []int) (nat.PortSet, nat.PortMap, error) {
	if len(ports) == 0 {
		return nil, nil, nil
	}
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range ports {
		port, err := nat.NewPort("tcp", fmt.Sprintf("%d", p))
		if err != nil {
			return nil, nil, fmt.Errorf("container: invalid preview port %d: %w", p, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", p)}}
	}
	return exposed, bindings, nil
}

// Exec runs argv inside the running container, demultiplexing stdout
// from stderr via stdcopy and returning the combined stdout stream plus
// exit code.
func (d *DockerExec) Exec(ctx context.Context, id string, argv []string, timeout time.Duration) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := d.cli.ContainerExecCreate(ctx, id, types.ExecConfig{
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("container: exec create failed on %s: %w", id, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return "", 0, fmt.Errorf("container: exec attach failed on %s: %w", id, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && err != io.EOF {
		return "", 0, fmt.Errorf("container: exec output demux failed on %s: %w", id, err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return "", 0, fmt.Errorf("container: exec inspect failed on %s: %w", id, err)
	}
	if inspect.ExitCode != 0 && stderr.Len() > 0 {
		return stdout.String(), inspect.ExitCode, fmt.Errorf("container: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), inspect.ExitCode, nil
}

// WriteFile materializes content at path inside the container via a
// single-entry tar stream (the standard docker cp mechanism).
func (d *DockerExec) WriteFile(ctx context.Context, id, path string, content []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: strings.TrimPrefix(path, "/"), Mode: 0o644, Size: int64(len(content))}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("container: tar header for %s failed: %w", path, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("container: tar write for %s failed: %w", path, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("container: tar close for %s failed: %w", path, err)
	}
	if err := d.cli.CopyToContainer(ctx, id, "/", &buf, types.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("container: copy to container %s failed: %w", id, err)
	}
	return nil
}

// Logs returns up to tail lines of combined stdout/stderr.
func (d *DockerExec) Logs(ctx context.Context, id string, tail int) (string, error) {
	reader, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       fmt.Sprintf("%d", tail),
	})
	if err != nil {
		return "", fmt.Errorf("container: logs failed for %s: %w", id, err)
	}
	defer reader.Close()
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, reader); err != nil && err != io.EOF {
		return "", fmt.Errorf("container: log demux failed for %s: %w", id, err)
	}
	return out.String(), nil
}

// Pause suspends the container's CPU while preserving memory (§4.1
// "Entering idle pauses the container (suspended CPU, preserved memory)
// to cap resource usage").
func (d *DockerExec) Pause(ctx context.Context, id string) error {
	if err := d.cli.ContainerPause(ctx, id); err != nil {
		return fmt.Errorf("container: pause failed for %s: %w", id, err)
	}
	return nil
}

// Unpause resumes a previously paused container.
func (d *DockerExec) Unpause(ctx context.Context, id string) error {
	if err := d.cli.ContainerUnpause(ctx, id); err != nil {
		return fmt.Errorf("container: unpause failed for %s: %w", id, err)
	}
	return nil
}

// Stop gracefully stops the container, matching the exit-code semantics
// the teacher's long-running docker executor observes.
func (d *DockerExec) Stop(ctx context.Context, id string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("container: stop failed for %s: %w", id, err)
	}
	return nil
}

// Remove force-removes the container and its volumes.
func (d *DockerExec) Remove(ctx context.Context, id string) error {
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("container: remove failed for %s: %w", id, err)
	}
	return nil
}
