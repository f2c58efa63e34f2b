package api

import (
	"context"
	"errors"
	"net/http"

	"docscribe/internal/preference"
)

func prefsPath(projectID string) string {
	return "/projects/" + seg(projectID) + "/preferences/"
}

func (c *Client) GetPreferences(ctx context.Context, projectID string) (preference.Preferences, error) {
	var out preference.Preferences
	_, err := c.do(ctx, call{method: http.MethodGet, path: prefsPath(projectID)}, &out)
	return out, err
}

// UpdatePreferences sends the full document as a PATCH.
func (c *Client) UpdatePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	var out preference.Preferences
	_, err := c.do(ctx, call{method: http.MethodPatch, path: prefsPath(projectID), body: prefs}, &out)
	return out, err
}

func (c *Client) CreatePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	var out preference.Preferences
	_, err := c.do(ctx, call{method: http.MethodPost, path: prefsPath(projectID), body: prefs}, &out)
	return out, err
}

func (c *Client) DeletePreferences(ctx context.Context, projectID string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: prefsPath(projectID)}, nil)
	return err
}

// SavePreferences updates the document and creates it when none exists.
func (c *Client) SavePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	out, err := c.UpdatePreferences(ctx, projectID, prefs)
	if errors.Is(err, ErrNotFound) {
		return c.CreatePreferences(ctx, projectID, prefs)
	}
	return out, err
}

var (
	_ preference.Remote = (*Client)(nil)
	_ preference.Remote = (*CachedClient)(nil)
)
