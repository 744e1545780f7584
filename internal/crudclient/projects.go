package crudclient

import (
	"context"
	"fmt"
)

// Project mirrors the external CRUD layer's /projects resource.
type Project struct {
	ID             string            `json:"id"`
	OwnerUserID    int64             `json:"owner_user_id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	RepositoryURL  string            `json:"repository_url,omitempty"`
	Template       string            `json:"template,omitempty"`
	Secrets        map[string]string `json:"secrets,omitempty"`
	Status         string            `json:"status"`
	DeployedServer string            `json:"deployed_server,omitempty"`
	DeployedPort   int               `json:"deployed_port,omitempty"`
}

// GetProject fetches one project by id.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := c.do(ctx, "GET", "/projects/"+id, nil, &p); err != nil {
		return nil, fmt.Errorf("crudclient: get project %s: %w", id, err)
	}
	return &p, nil
}

// ListProjectsByOwner lists every project owned by ownerUserID.
func (c *Client) ListProjectsByOwner(ctx context.Context, ownerUserID int64) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, "GET", fmt.Sprintf("/projects?owner_user_id=%d", ownerUserID), nil, &projects); err != nil {
		return nil, fmt.Errorf("crudclient: list projects for owner %d: %w", ownerUserID, err)
	}
	return projects, nil
}

// UpdateProject patches mutable project fields. Per spec.md §5 "Shared-
// resource policy", concurrent writers may race; last-writer wins.
func (c *Client) UpdateProject(ctx context.Context, id string, patch map[string]any) error {
	if err := c.do(ctx, "PATCH", "/projects/"+id, patch, nil); err != nil {
		return fmt.Errorf("crudclient: update project %s: %w", id, err)
	}
	return nil
}

// GetProjectSecret looks up one user-supplied secret by name, returning
// ok=false if the project has no value stored for it yet.
func (c *Client) GetProjectSecret(ctx context.Context, projectID, name string) (value string, ok bool, err error) {
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	v, ok := p.Secrets[name]
	return v, ok, nil
}

// SetProjectSecrets merges the given secret values into the project's
// stored secrets.
func (c *Client) SetProjectSecrets(ctx context.Context, projectID string, secrets map[string]string) error {
	if err := c.do(ctx, "POST", "/projects/"+projectID+"/secrets", secrets, nil); err != nil {
		return fmt.Errorf("crudclient: set secrets for project %s: %w", projectID, err)
	}
	return nil
}
