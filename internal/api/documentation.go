package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docscribe/internal/types"
)

func docsPath(projectID string) string {
	return "/documentation/projects/" + seg(projectID)
}

func revisionPath(projectID, revisionID string) string {
	return docsPath(projectID) + "/revisions/" + seg(revisionID)
}

// Plan fetches the documentation plan, bypassing any intermediate cache.
func (c *Client) Plan(ctx context.Context, projectID string) (types.DocumentationPlan, error) {
	var out types.DocumentationPlan
	cl := call{
		method: http.MethodGet,
		path:   docsPath(projectID) + "/plan",
		query:  url.Values{"t": {strconv.FormatInt(time.Now().UnixMilli(), 10)}},
		header: http.Header{"Cache-Control": {"no-cache"}, "Pragma": {"no-cache"}},
	}
	_, err := c.do(ctx, cl, &out)
	return out, err
}

// Generate runs docstring generation. It is not bounded by the client
// timeout since model cold starts can take minutes; cancel ctx to abort.
func (c *Client) Generate(ctx context.Context, projectID string, req types.GenerateRequest) (types.GenerateResponse, error) {
	var out types.GenerateResponse
	_, err := c.do(ctx, call{method: http.MethodPost, path: docsPath(projectID) + "/generate", body: req, noTimeout: true}, &out)
	return out, err
}

// ListRevisions returns revisions newest first.
func (c *Client) ListRevisions(ctx context.Context, projectID string) (types.RevisionList, error) {
	var out types.RevisionList
	_, err := c.do(ctx, call{method: http.MethodGet, path: docsPath(projectID) + "/revisions"}, &out)
	if out.Revisions == nil {
		out.Revisions = []types.Revision{}
	}
	return out, err
}

func (c *Client) GetRevision(ctx context.Context, projectID, revisionID string) (types.Revision, error) {
	var out types.Revision
	_, err := c.do(ctx, call{method: http.MethodGet, path: revisionPath(projectID, revisionID)}, &out)
	return out, err
}

// DownloadRevision fetches the rendered document. The filename comes from
// Content-Disposition when the server sends one.
func (c *Client) DownloadRevision(ctx context.Context, projectID, revisionID string) (types.Download, error) {
	cl := call{
		method: http.MethodGet,
		path:   revisionPath(projectID, revisionID) + "/download",
		header: http.Header{"Accept": {"*/*"}},
	}
	resp, err := c.do(ctx, cl, nil)
	if err != nil {
		return types.Download{}, err
	}
	return types.Download{
		Filename:    filenameFromDisposition(resp.header.Get("Content-Disposition")),
		ContentType: resp.header.Get("Content-Type"),
		Body:        resp.body,
	}, nil
}

// UpdateRevision replaces the revision's notes.
func (c *Client) UpdateRevision(ctx context.Context, projectID, revisionID, notes string) (types.Revision, error) {
	var out types.Revision
	body := map[string]string{"notes": notes}
	_, err := c.do(ctx, call{method: http.MethodPatch, path: revisionPath(projectID, revisionID), body: body}, &out)
	return out, err
}

func (c *Client) DeleteRevision(ctx context.Context, projectID, revisionID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: revisionPath(projectID, revisionID)}, nil)
	return err
}

// Warmup pings the model endpoint so a later generation does not hit a cold
// start. The x-model-status header is returned when present.
func (c *Client) Warmup(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, call{method: http.MethodPost, path: "/documentation/warmup", noTimeout: true}, nil)
	if err != nil {
		return ModelStatusOf(err), err
	}
	return resp.header.Get(headerModelStatus), nil
}
