package api

import (
	"context"
	"fmt"
	"net/http"

	"docscribe/internal/types"
)

// Register creates an account. A token in the reply replaces the client's.
func (c *Client) Register(ctx context.Context, in types.Credentials) (types.Token, error) {
	var out types.Token
	if _, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/register", body: in}, &out); err != nil {
		return out, err
	}
	if out.AccessToken != "" {
		c.SetToken(out.AccessToken)
	}
	return out, nil
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (types.Token, error) {
	var out types.Token
	body := types.Credentials{Username: username, Password: password}
	if _, err := c.do(ctx, call{method: http.MethodPost, path: "/auth/login", body: body}, &out); err != nil {
		return out, err
	}
	if out.AccessToken == "" {
		return out, fmt.Errorf("login: empty access token")
	}
	c.SetToken(out.AccessToken)
	return out, nil
}

func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out types.User
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me"}, &out)
	return out, err
}

func userPath(userID string) string { return "/users/" + seg(userID) }

func (c *Client) CreateUser(ctx context.Context, in types.Credentials) (types.User, error) {
	var out types.User
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/users", body: in}, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, userID string) (types.User, error) {
	var out types.User
	_, err := c.do(ctx, call{method: http.MethodGet, path: userPath(userID)}, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, userID string, fields map[string]any) (types.User, error) {
	var out types.User
	_, err := c.do(ctx, call{method: http.MethodPatch, path: userPath(userID), body: fields}, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: userPath(userID)}, nil)
	return err
}

// GithubRepos lists the repositories of the GitHub account linked to the
// current user.
func (c *Client) GithubRepos(ctx context.Context) ([]types.GithubRepo, error) {
	var out []types.GithubRepo
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/auth/github/repos"}, &out)
	return out, err
}

func (c *Client) GithubBranches(ctx context.Context, owner, repo string) ([]types.GithubBranch, error) {
	var out []types.GithubBranch
	p := "/github/repos/" + seg(owner) + "/" + seg(repo) + "/branches"
	_, err := c.do(ctx, call{method: http.MethodGet, path: p}, &out)
	return out, err
}

// GithubImport creates a project from a repository at a ref.
func (c *Client) GithubImport(ctx context.Context, in types.GithubImportRequest) (types.Project, error) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var out types.Project
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/github/import", body: in}, &out)
	return out, err
}
