package crudclient

import (
	"context"
	"fmt"
)

// ServerStatus mirrors the external CRUD layer's managed-server status
// enum (spec.md §4.6 "server_handle ... status ∈ {ready, in_use}"; §6
// incident reporting additionally transitions servers to "error").
type ServerStatus string

const (
	ServerStatusReady ServerStatus = "ready"
	ServerStatusInUse ServerStatus = "in_use"
	ServerStatusError ServerStatus = "error"
)

// Server mirrors the external CRUD layer's /servers resource.
type Server struct {
	Handle        string       `json:"handle"`
	IP            string       `json:"ip"`
	AvailableRAMMB int         `json:"available_ram_mb"`
	Status        ServerStatus `json:"status"`
}

// ListServers fetches every managed server.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	var servers []Server
	if err := c.do(ctx, "GET", "/servers", nil, &servers); err != nil {
		return nil, fmt.Errorf("crudclient: list servers: %w", err)
	}
	return servers, nil
}

// PortAllocation mirrors a reserved (server, port, project) tuple.
type PortAllocation struct {
	ServerHandle string `json:"server_handle"`
	Port         int    `json:"port"`
	ProjectID    string `json:"project_id"`
}

// AllocatePort reserves an unused port on serverHandle for projectID.
// Per spec.md §5 "Allocations: serialized by a unique-constraint on
// (server, port)", the external layer itself enforces the uniqueness
// and returns a 409-class error (mapped to KindUserActionable by `do`)
// when the caller must retry with a different port.
func (c *Client) AllocatePort(ctx context.Context, serverHandle, projectID string, port int) (*PortAllocation, error) {
	var alloc PortAllocation
	body := map[string]any{"server_handle": serverHandle, "project_id": projectID, "port": port}
	if err := c.do(ctx, "POST", "/servers/"+serverHandle+"/allocations", body, &alloc); err != nil {
		return nil, fmt.Errorf("crudclient: allocate port %d on %s: %w", port, serverHandle, err)
	}
	return &alloc, nil
}

// SetServerStatus transitions a server's status (e.g. ready -> error on
// a failed incident, per §6).
func (c *Client) SetServerStatus(ctx context.Context, serverHandle string, status ServerStatus) error {
	if err := c.do(ctx, "PATCH", "/servers/"+serverHandle, map[string]any{"status": string(status)}, nil); err != nil {
		return fmt.Errorf("crudclient: set status of %s to %s: %w", serverHandle, status, err)
	}
	return nil
}
