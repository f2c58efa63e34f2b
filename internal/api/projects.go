package api

import (
	"context"
	"net/http"

	"docscribe/internal/types"
)

func projectPath(projectID string) string {
	return "/projects/" + seg(projectID)
}

func (c *Client) CreateProject(ctx context.Context, in types.ProjectCreate) (types.Project, error) {
	var out types.Project
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/projects", body: in}, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, projectID string) (types.Project, error) {
	var out types.Project
	_, err := c.do(ctx, call{method: http.MethodGet, path: projectPath(projectID)}, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, in types.ProjectUpdate) (types.Project, error) {
	var out types.Project
	_, err := c.do(ctx, call{method: http.MethodPatch, path: projectPath(projectID), body: in}, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: projectPath(projectID)}, nil)
	return err
}

// ApplyPreferences asks the backend to re-derive the project's parsed state
// from the saved preferences.
func (c *Client) ApplyPreferences(ctx context.Context, projectID string) (map[string]any, error) {
	var out map[string]any
	_, err := c.do(ctx, call{method: http.MethodPost, path: projectPath(projectID) + "/apply-preferences"}, &out)
	return out, err
}

func (c *Client) UserProjects(ctx context.Context, userID string) ([]types.Project, error) {
	var out []types.Project
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/users/" + seg(userID) + "/projects"}, &out)
	return out, err
}
