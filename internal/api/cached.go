package api

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docscribe/internal/preference"
	"docscribe/internal/types"
)

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 30 * time.Second, MaxEntries: 256}
}

type CacheMetrics struct {
	Hits          uint64
	Misses        uint64
	Invalidations uint64
}

// CachedClient serves file lists, file trees and plans from a short-lived
// per-project cache. Every preference write or file mutation through it drops
// that project's entries.
type CachedClient struct {
	*Client

	files *expirable.LRU[string, []types.FileRecord]
	trees *expirable.LRU[string, *types.FileTreeNode]
	plans *expirable.LRU[string, types.DocumentationPlan]

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

func NewCachedClient(c *Client, cfg CacheConfig) *CachedClient {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &CachedClient{
		Client: c,
		files:  expirable.NewLRU[string, []types.FileRecord](cfg.MaxEntries, nil, cfg.TTL),
		trees:  expirable.NewLRU[string, *types.FileTreeNode](cfg.MaxEntries, nil, cfg.TTL),
		plans:  expirable.NewLRU[string, types.DocumentationPlan](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (c *CachedClient) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// Invalidate drops every cached entry of the project.
func (c *CachedClient) Invalidate(projectID string) {
	key := strings.TrimSpace(projectID)
	c.files.Remove(key)
	c.trees.Remove(key)
	c.plans.Remove(key)
	c.invalidations.Add(1)
}

func (c *CachedClient) ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error) {
	key := strings.TrimSpace(projectID)
	if files, ok := c.files.Get(key); ok {
		c.hits.Add(1)
		return append([]types.FileRecord{}, files...), nil
	}
	c.misses.Add(1)
	files, err := c.Client.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.files.Add(key, append([]types.FileRecord{}, files...))
	return files, nil
}

func (c *CachedClient) FileTree(ctx context.Context, projectID string) (*types.FileTreeNode, error) {
	key := strings.TrimSpace(projectID)
	if tree, ok := c.trees.Get(key); ok {
		c.hits.Add(1)
		return tree, nil
	}
	c.misses.Add(1)
	tree, err := c.Client.FileTree(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.trees.Add(key, tree)
	return tree, nil
}

func (c *CachedClient) Plan(ctx context.Context, projectID string) (types.DocumentationPlan, error) {
	key := strings.TrimSpace(projectID)
	if plan, ok := c.plans.Get(key); ok {
		c.hits.Add(1)
		return plan, nil
	}
	c.misses.Add(1)
	plan, err := c.Client.Plan(ctx, projectID)
	if err != nil {
		return plan, err
	}
	c.plans.Add(key, plan)
	return plan, nil
}

func (c *CachedClient) UpdatePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	defer c.Invalidate(projectID)
	return c.Client.UpdatePreferences(ctx, projectID, prefs)
}

func (c *CachedClient) CreatePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	defer c.Invalidate(projectID)
	return c.Client.CreatePreferences(ctx, projectID, prefs)
}

func (c *CachedClient) SavePreferences(ctx context.Context, projectID string, prefs preference.Preferences) (preference.Preferences, error) {
	defer c.Invalidate(projectID)
	return c.Client.SavePreferences(ctx, projectID, prefs)
}

func (c *CachedClient) DeletePreferences(ctx context.Context, projectID string) error {
	defer c.Invalidate(projectID)
	return c.Client.DeletePreferences(ctx, projectID)
}

func (c *CachedClient) ApplyPreferences(ctx context.Context, projectID string) (map[string]any, error) {
	defer c.Invalidate(projectID)
	return c.Client.ApplyPreferences(ctx, projectID)
}

func (c *CachedClient) UploadFile(ctx context.Context, projectID, filename string, content io.Reader) (UploadResult, error) {
	defer c.Invalidate(projectID)
	return c.Client.UploadFile(ctx, projectID, filename, content)
}

func (c *CachedClient) UploadFiles(ctx context.Context, projectID string, files map[string]io.Reader) (UploadResult, error) {
	defer c.Invalidate(projectID)
	return c.Client.UploadFiles(ctx, projectID, files)
}

func (c *CachedClient) UploadZip(ctx context.Context, projectID, filename string, content io.Reader) (UploadResult, error) {
	defer c.Invalidate(projectID)
	return c.Client.UploadZip(ctx, projectID, filename, content)
}

func (c *CachedClient) DeleteFile(ctx context.Context, projectID, fileID string) error {
	defer c.Invalidate(projectID)
	return c.Client.DeleteFile(ctx, projectID, fileID)
}

func (c *CachedClient) DeleteAllFiles(ctx context.Context, projectID string) error {
	defer c.Invalidate(projectID)
	return c.Client.DeleteAllFiles(ctx, projectID)
}

func (c *CachedClient) DeleteProject(ctx context.Context, projectID string) error {
	defer c.Invalidate(projectID)
	return c.Client.DeleteProject(ctx, projectID)
}
