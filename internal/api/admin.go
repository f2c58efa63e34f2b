package api

import (
	"context"
	"net/http"

	"docscribe/internal/types"
)

// Admin groups the /admin endpoints. It requires an admin token.
type Admin struct {
	c *Client
}

func (c *Client) Admin() Admin { return Admin{c: c} }

// CleanupResult is the reply of the cleanup-orphans endpoints.
type CleanupResult map[string]any

func (a Admin) Users(ctx context.Context) ([]types.User, error) {
	var out []types.User
	_, err := a.c.do(ctx, call{method: http.MethodGet, path: "/admin/users"}, &out)
	return out, err
}

func (a Admin) UpdateUser(ctx context.Context, userID string, fields map[string]any) (types.User, error) {
	var out types.User
	_, err := a.c.do(ctx, call{method: http.MethodPatch, path: "/admin/users/" + seg(userID), body: fields}, &out)
	return out, err
}

func (a Admin) DeleteUser(ctx context.Context, userID string) error {
	return a.delete(ctx, "/admin/users/"+seg(userID))
}

func (a Admin) DeleteAllUsers(ctx context.Context) error {
	return a.delete(ctx, "/admin/users")
}

func (a Admin) Projects(ctx context.Context) ([]types.Project, error) {
	var out []types.Project
	_, err := a.c.do(ctx, call{method: http.MethodGet, path: "/admin/projects"}, &out)
	return out, err
}

func (a Admin) DeleteProject(ctx context.Context, projectID string) error {
	return a.delete(ctx, "/admin/projects/"+seg(projectID))
}

func (a Admin) DeleteAllProjects(ctx context.Context) error {
	return a.delete(ctx, "/admin/projects")
}

func (a Admin) CleanupProjects(ctx context.Context) (CleanupResult, error) {
	return a.cleanup(ctx, "/admin/projects/cleanup-orphans")
}

func (a Admin) Files(ctx context.Context) ([]types.FileRecord, error) {
	var out []types.FileRecord
	_, err := a.c.do(ctx, call{method: http.MethodGet, path: "/admin/files"}, &out)
	return out, err
}

func (a Admin) DeleteFile(ctx context.Context, fileID string) error {
	return a.delete(ctx, "/admin/files/"+seg(fileID))
}

func (a Admin) DeleteAllFiles(ctx context.Context) error {
	return a.delete(ctx, "/admin/files")
}

func (a Admin) CleanupFiles(ctx context.Context) (CleanupResult, error) {
	return a.cleanup(ctx, "/admin/files/cleanup-orphans")
}

func (a Admin) Documentations(ctx context.Context) ([]types.Revision, error) {
	var out []types.Revision
	_, err := a.c.do(ctx, call{method: http.MethodGet, path: "/admin/documentations"}, &out)
	return out, err
}

func (a Admin) Documentation(ctx context.Context, revisionID string) (types.Revision, error) {
	var out types.Revision
	_, err := a.c.do(ctx, call{method: http.MethodGet, path: "/admin/documentations/" + seg(revisionID)}, &out)
	return out, err
}

func (a Admin) DeleteDocumentation(ctx context.Context, revisionID string) error {
	return a.delete(ctx, "/admin/documentations/"+seg(revisionID))
}

func (a Admin) DeleteAllDocumentations(ctx context.Context) error {
	return a.delete(ctx, "/admin/documentations")
}

func (a Admin) CleanupDocumentations(ctx context.Context) (CleanupResult, error) {
	return a.cleanup(ctx, "/admin/documentations/cleanup-orphans")
}

func (a Admin) delete(ctx context.Context, p string) error {
	_, err := a.c.do(ctx, call{method: http.MethodDelete, path: p}, nil)
	return err
}

func (a Admin) cleanup(ctx context.Context, p string) (CleanupResult, error) {
	out := CleanupResult{}
	_, err := a.c.do(ctx, call{method: http.MethodPost, path: p}, &out)
	return out, err
}
