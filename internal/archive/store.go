// Package archive keeps local copies of generated documentation revisions.
// Files are addressed by a key (project/revision) and a name within it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"docscribe/internal/pathutil"
)

// Store persists archived files.
type Store interface {
	Put(ctx context.Context, key, name string, content []byte) error
	Get(ctx context.Context, key, name string) ([]byte, error)
	// GetURL returns a link to the file, or "" when the backend has none.
	GetURL(ctx context.Context, key, name string) (string, error)
	// List returns the paths of every file under key, relative to it, sorted.
	List(ctx context.Context, key string) ([]string, error)
}

var ErrNotFound = errors.New("archived file not found")

// cleanRef normalizes key and name and rejects empty or escaping paths.
func cleanRef(key, name string) (string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	n := pathutil.Normalize(name)
	if n == "" {
		return "", "", fmt.Errorf("name is required")
	}
	if slices.Contains(pathutil.Parts(n), "..") {
		return "", "", fmt.Errorf("invalid name %q", name)
	}
	return k, n, nil
}

func cleanKey(key string) (string, error) {
	k := pathutil.Normalize(key)
	if k == "" {
		return "", fmt.Errorf("key is required")
	}
	if slices.Contains(pathutil.Parts(k), "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return k, nil
}

func objectKey(key, name string) string {
	return key + "/" + name
}
