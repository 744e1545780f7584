package container

import (
	"context"
	"io"
	"time"
)

// ContainerExec is the narrow container-runtime surface the Manager and
// Factory implementations need: create/start/pause/unpause/stop/remove
// plus exec-in-container and log streaming. Implemented by DockerExec
// for real use and by a fake in tests, so neither the Manager nor a
// Factory needs to know which container runtime is underneath (spec.md
// §9 "duck typing -> interface abstraction").
type ContainerExec interface {
	// Create builds (or reuses, by ImageCacheKey) an image for cfg,
	// starts a container on an isolated network, and returns its
	// platform-native id.
	Create(ctx context.Context, name string, cfg Config, installCmds []string, invokeCmd []string) (id string, err error)
	Exec(ctx context.Context, id string, argv []string, timeout time.Duration) (stdout string, exitCode int, err error)
	WriteFile(ctx context.Context, id, path string, content []byte) error
	Logs(ctx context.Context, id string, tail int) (string, error)
	Pause(ctx context.Context, id string) error
	Unpause(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string) error
}

// LogWriter is satisfied by anything Logs can stream into; kept small so
// callers that only want a string can use a bytes.Buffer / strings.Builder.
type LogWriter = io.Writer
