// Package safeio reads upload sources from the local disk without letting a
// path argument or a symlink escape the directory the user pointed at.
package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"docscribe/internal/pathutil"
)

// SafeFS resolves every path under a fixed root.
type SafeFS struct {
	absRoot string // absolute, symlinks resolved
}

// NewSafeFS binds reads to root, which must be an existing directory.
func NewSafeFS(root string) (*SafeFS, error) {
	if root == "" {
		return nil, errors.New("safeio: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &SafeFS{absRoot: abs}, nil
}

func (s *SafeFS) Root() string {
	if s == nil {
		return ""
	}
	return s.absRoot
}

// ReadFile reads a file relative to the root (absolute paths must lie
// under it).
func (s *SafeFS) ReadFile(userPath string) ([]byte, error) {
	p, err := s.resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// Open implements fs.FS (names use "/" separators).
func (s *SafeFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, fs.ErrInvalid
	}
	p, err := s.resolve(filepath.FromSlash(name))
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Source is one file to upload. Name is its slash-separated path relative
// to the root. Uploads send only the base name, so the backend stores files
// flat and same-named files in different directories collide.
type Source struct {
	Name    string
	Content []byte
}

// skipDirs are never walked when collecting Python sources.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".venv": true, "venv": true, "env": true,
	"__pycache__": true, "node_modules": true, ".mypy_cache": true, ".pytest_cache": true, ".tox": true,
}

// PythonSources collects every .py file under target, which may be a file
// or a directory relative to the root. Hidden and virtualenv directories are
// skipped. Results are sorted by Name.
func (s *SafeFS) PythonSources(target string) ([]Source, error) {
	start, err := s.resolve(firstNonEmpty(target, "."))
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(start)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !pathutil.IsPython(start) {
			return nil, fmt.Errorf("safeio: %s is not a Python file", target)
		}
		return s.collect(nil, start)
	}

	var out []Source
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != start && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !pathutil.IsPython(p) {
			return nil
		}
		out, err = s.collect(out, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *SafeFS) collect(out []Source, abs string) ([]Source, error) {
	rel, err := filepath.Rel(s.absRoot, abs)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return append(out, Source{Name: pathutil.Normalize(filepath.ToSlash(rel)), Content: b}), nil
}

func (s *SafeFS) resolve(userPath string) (string, error) {
	if s == nil {
		return "", errors.New("safeio: filesystem not configured")
	}
	if userPath == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(userPath)
	if clean == "." {
		return s.absRoot, nil
	}

	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	if !isAbs && (clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))) {
		return "", errors.New("safeio: path traversal not allowed")
	}
	joined := clean
	if !isAbs {
		joined = filepath.Join(s.absRoot, clean)
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, s.absRoot) {
		return "", fmt.Errorf("safeio: resolved outside root (root=%s, path=%s)", s.absRoot, resolved)
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	return strings.HasPrefix(path+sep, strings.TrimSuffix(root, sep)+sep)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
