package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"docscribe/internal/types"
)

func filesPath(projectID string) string {
	return "/projects/" + seg(projectID) + "/files/"
}

// ListFiles returns every parsed file of the project.
func (c *Client) ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error) {
	var out []types.FileRecord
	if _, err := c.do(ctx, call{method: http.MethodGet, path: filesPath(projectID) + "all"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.FileRecord{}
	}
	return out, nil
}

// FileTree accepts both tree shapes the backend has produced.
func (c *Client) FileTree(ctx context.Context, projectID string) (*types.FileTreeNode, error) {
	resp, err := c.do(ctx, call{method: http.MethodGet, path: filesPath(projectID) + "tree"}, nil)
	if err != nil {
		return nil, err
	}
	return types.ParseTree(resp.body)
}

func (c *Client) GetFile(ctx context.Context, projectID, fileID string) (types.FileRecord, error) {
	var out types.FileRecord
	_, err := c.do(ctx, call{method: http.MethodGet, path: filesPath(projectID) + seg(fileID)}, &out)
	return out, err
}

func (c *Client) DeleteFile(ctx context.Context, projectID, fileID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: filesPath(projectID) + seg(fileID)}, nil)
	return err
}

func (c *Client) DeleteAllFiles(ctx context.Context, projectID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: filesPath(projectID)}, nil)
	return err
}

// UploadResult is the backend's reply to an upload. Its shape differs per
// endpoint, so the raw body is kept alongside the decoded files.
type UploadResult struct {
	Files []types.FileRecord `json:"files,omitempty"`
	Raw   json.RawMessage    `json:"-"`
}

// UploadFile uploads one Python file under the multipart field "file".
func (c *Client) UploadFile(ctx context.Context, projectID, filename string, content io.Reader) (UploadResult, error) {
	return c.upload(ctx, filesPath(projectID), &multipartBody{files: []formFile{{field: "file", filename: filename, content: content}}})
}

// UploadFiles uploads several files under the multipart field "files".
func (c *Client) UploadFiles(ctx context.Context, projectID string, files map[string]io.Reader) (UploadResult, error) {
	if len(files) == 0 {
		return UploadResult{}, fmt.Errorf("no files to upload")
	}
	body := &multipartBody{}
	for name, r := range files {
		body.files = append(body.files, formFile{field: "files", filename: name, content: r})
	}
	return c.upload(ctx, filesPath(projectID)+"upload-multiple", body)
}

// UploadZip uploads a zipped project under the multipart field "zip_file".
func (c *Client) UploadZip(ctx context.Context, projectID, filename string, content io.Reader) (UploadResult, error) {
	return c.upload(ctx, filesPath(projectID)+"upload-zip", &multipartBody{files: []formFile{{field: "zip_file", filename: filename, content: content}}})
}

func (c *Client) upload(ctx context.Context, p string, body *multipartBody) (UploadResult, error) {
	resp, err := c.do(ctx, call{method: http.MethodPost, path: p, body: body}, nil)
	if err != nil {
		return UploadResult{}, err
	}
	out := UploadResult{Raw: append(json.RawMessage(nil), resp.body...)}
	var list []types.FileRecord
	if json.Unmarshal(resp.body, &list) == nil {
		out.Files = list
		return out, nil
	}
	var one types.FileRecord
	if json.Unmarshal(resp.body, &out) == nil && len(out.Files) > 0 {
		return out, nil
	}
	if json.Unmarshal(resp.body, &one) == nil && one.Key() != "" {
		out.Files = []types.FileRecord{one}
	}
	return out, nil
}
